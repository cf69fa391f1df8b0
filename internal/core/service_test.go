package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/listings/internal/events"
	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/store"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

const sampleExport = "Condominio;Direccion;Comuna;Tipologia;Arriendo Total;m2 Depto;Unidad\n" +
	"Parque Sur;Av. Siempre Viva 123;Ñuñoa;1D1B;450.000;45;101\n" +
	"Parque Sur;Av. Siempre Viva 123;Ñuñoa;2D2B;620.000;65;102\n" +
	"Torre Norte;Los Leones 50;Providencia;XYZ;500.000;50;201\n"

type fakeStore struct {
	mu        sync.Mutex
	saved     [][]listing.Building
	records   []store.ImportRecord
	summary   *store.SaveSummary
	recordErr error
	buildings []listing.Building
	listErr   error
}

func (f *fakeStore) SaveBuildings(_ context.Context, buildings []listing.Building) store.SaveSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, buildings)
	if f.summary != nil {
		return *f.summary
	}
	return store.SaveSummary{Succeeded: len(buildings)}
}

func (f *fakeStore) RecordImport(_ context.Context, rec store.ImportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.recordErr
}

func (f *fakeStore) ListBuildings(context.Context) ([]listing.Building, error) {
	return f.buildings, f.listErr
}

func (f *fakeStore) GetBuilding(_ context.Context, id string) (listing.Building, error) {
	for _, b := range f.buildings {
		if b.ID == id {
			return b, nil
		}
	}
	return listing.Building{}, store.ErrNotFound
}

func (f *fakeStore) ListImports(_ context.Context, limit int) ([]store.ImportRecord, error) {
	return f.records, f.listErr
}

type fakePublisher struct {
	events []events.ImportCompleted
	err    error
}

func (p *fakePublisher) PublishImportCompleted(_ context.Context, evt events.ImportCompleted) error {
	p.events = append(p.events, evt)
	return p.err
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(10 * time.Millisecond)
		return t
	}
}

// ----------------------------------------------------------------------------
// Preview Tests
// ----------------------------------------------------------------------------

func TestService_Preview(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st, Options{Now: fixedClock()})

	report, err := svc.Preview(context.Background(), "export.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)

	assert.Equal(t, "export.csv", report.FileName)
	assert.NotEqual(t, uuid.Nil, report.ImportID)
	assert.Nil(t, report.Save)
	assert.Equal(t, int64(10), report.DurationMs)

	res := report.Result
	assert.Equal(t, 3, res.Stats.Rows)
	require.Len(t, res.ValidBuildings, 1)
	assert.Equal(t, "ap_parque-sur", res.ValidBuildings[0].ID)
	assert.Len(t, res.ValidBuildings[0].Units, 2)
	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 4, res.RowErrors[0].Line)

	assert.Empty(t, st.saved, "preview must not persist")
	assert.Empty(t, st.records)
}

func TestService_Preview_InputErrors(t *testing.T) {
	svc := NewService(nil, Options{MaxFileSize: 16})

	_, err := svc.Preview(context.Background(), "big.csv", strings.NewReader(sampleExport))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Preview(context.Background(), "empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	assert.Equal(t, 0, svc.LimiterStatus().Active, "slot released after failure")
}

func TestService_Preview_Busy(t *testing.T) {
	limiter := NewImportLimiter(1, 20*time.Millisecond)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	svc := NewService(nil, Options{Limiter: limiter})
	_, err := svc.Preview(context.Background(), "export.csv", strings.NewReader(sampleExport))
	assert.ErrorIs(t, err, ErrTooManyImports)
}

// ----------------------------------------------------------------------------
// Import Tests
// ----------------------------------------------------------------------------

func TestService_Import(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewService(st, Options{Publisher: pub, Now: fixedClock()})

	report, err := svc.Import(context.Background(), "export.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)

	require.NotNil(t, report.Save)
	assert.Equal(t, store.SaveSummary{Succeeded: 1}, *report.Save)

	require.Len(t, st.saved, 1)
	assert.Equal(t, report.Result.ValidBuildings, st.saved[0])

	require.Len(t, st.records, 1)
	rec := st.records[0]
	assert.Equal(t, report.ImportID, rec.ID)
	assert.Equal(t, "export.csv", rec.FileName)
	assert.Equal(t, 3, rec.Rows)
	assert.Equal(t, 1, rec.ValidBuildings)
	assert.Equal(t, 2, rec.ValidUnits)
	assert.Equal(t, 1, rec.RowErrors)
	assert.Equal(t, 1, rec.Saved)
	assert.Equal(t, report.DurationMs, rec.DurationMs)

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, report.ImportID, evt.ImportID)
	assert.Equal(t, []string{"ap_parque-sur"}, evt.BuildingIDs)
	assert.Equal(t, 2, evt.ValidUnits)
	assert.Equal(t, 1, evt.SavedBuildings)
	assert.Equal(t, 1, evt.RowErrors)
}

func TestService_Import_SideEffectFailuresAreNotFatal(t *testing.T) {
	st := &fakeStore{
		recordErr: errors.New("connection reset"),
		summary: &store.SaveSummary{Failed: 1, Failures: []store.SaveFailure{
			{BuildingID: "ap_parque-sur", Error: "deadlock detected"},
		}},
	}
	pub := &fakePublisher{err: errors.New("channel closed")}
	svc := NewService(st, Options{Publisher: pub})

	report, err := svc.Import(context.Background(), "export.csv", strings.NewReader(sampleExport))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Save.Failed)
	assert.Len(t, pub.events, 1)
	assert.Equal(t, 1, pub.events[0].FailedBuildings)
}

func TestService_Import_NoStore(t *testing.T) {
	svc := NewService(nil, Options{})
	_, err := svc.Import(context.Background(), "export.csv", strings.NewReader(sampleExport))
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestService_Import_DefaultPublisherIsNop(t *testing.T) {
	svc := NewService(&fakeStore{}, Options{})
	_, err := svc.Import(context.Background(), "export.csv", strings.NewReader(sampleExport))
	assert.NoError(t, err)
}

// ----------------------------------------------------------------------------
// Query Tests
// ----------------------------------------------------------------------------

func TestService_Queries(t *testing.T) {
	st := &fakeStore{buildings: []listing.Building{{ID: "ap_a", Name: "A"}}}
	svc := NewService(st, Options{})
	ctx := context.Background()

	all, err := svc.ListBuildings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	b, err := svc.GetBuilding(ctx, "ap_a")
	require.NoError(t, err)
	assert.Equal(t, "A", b.Name)

	_, err = svc.GetBuilding(ctx, "ap_missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	st.listErr = errors.New("connection refused")
	_, err = svc.ListBuildings(ctx)
	assert.ErrorContains(t, err, "list buildings")
	_, err = svc.ListImports(ctx, 10)
	assert.ErrorContains(t, err, "list imports")
}

func TestService_QueriesWithoutStore(t *testing.T) {
	svc := NewService(nil, Options{})
	ctx := context.Background()

	_, err := svc.ListBuildings(ctx)
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = svc.GetBuilding(ctx, "ap_a")
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = svc.ListImports(ctx, 0)
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestService_WaitForImports(t *testing.T) {
	svc := NewService(nil, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.WaitForImports(ctx))
}

func TestClientIPContext(t *testing.T) {
	assert.Equal(t, "", ClientIPFromContext(context.Background()))
	ctx := ContextWithClientIP(context.Background(), "10.0.0.7")
	assert.Equal(t, "10.0.0.7", ClientIPFromContext(ctx))
}
