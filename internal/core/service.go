package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/listings/internal/events"
	"github.com/JonMunkholm/listings/internal/ingest"
	"github.com/JonMunkholm/listings/internal/listing"
	"github.com/JonMunkholm/listings/internal/logging"
	"github.com/JonMunkholm/listings/internal/store"
)

// DefaultImportTimeout bounds the persistence phase of an import.
const DefaultImportTimeout = 2 * time.Minute

// ErrNoStore is returned by operations that need a database when the
// service was built without one.
var ErrNoStore = errors.New("persistence is not configured")

// Store is the persistence the service needs. *store.Store implements it.
type Store interface {
	SaveBuildings(ctx context.Context, buildings []listing.Building) store.SaveSummary
	RecordImport(ctx context.Context, rec store.ImportRecord) error
	ListBuildings(ctx context.Context) ([]listing.Building, error)
	GetBuilding(ctx context.Context, id string) (listing.Building, error)
	ListImports(ctx context.Context, limit int) ([]store.ImportRecord, error)
}

// Publisher announces finished imports.
type Publisher interface {
	PublishImportCompleted(ctx context.Context, evt events.ImportCompleted) error
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Importer    *ingest.Importer
	Limiter     *ImportLimiter
	Publisher   Publisher
	MaxFileSize int64
	Timeout     time.Duration

	// Now is used for timestamps and durations; tests replace it.
	Now func() time.Time
}

// Service runs imports and serves the stored listings. It is safe for
// concurrent use.
type Service struct {
	store       Store
	importer    *ingest.Importer
	limiter     *ImportLimiter
	publisher   Publisher
	maxFileSize int64
	timeout     time.Duration
	now         func() time.Time
}

// NewService builds a Service. st may be nil for preview-only use.
func NewService(st Store, opts Options) *Service {
	s := &Service{
		store:       st,
		importer:    opts.Importer,
		limiter:     opts.Limiter,
		publisher:   opts.Publisher,
		maxFileSize: opts.MaxFileSize,
		timeout:     opts.Timeout,
		now:         opts.Now,
	}
	if s.importer == nil {
		s.importer = ingest.New(ingest.Options{})
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(0, 0)
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	if s.timeout <= 0 {
		s.timeout = DefaultImportTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ImportReport is what Preview and Import return.
type ImportReport struct {
	ImportID   uuid.UUID          `json:"importId"`
	FileName   string             `json:"fileName"`
	Result     ingest.Result      `json:"result"`
	Save       *store.SaveSummary `json:"save,omitempty"`
	StartedAt  time.Time          `json:"startedAt"`
	DurationMs int64              `json:"durationMs"`
}

// Preview runs the pipeline over r without persisting anything.
func (s *Service) Preview(ctx context.Context, fileName string, r io.Reader) (*ImportReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	report, err := s.run(fileName, r)
	if err != nil {
		return nil, err
	}

	s.logger(ctx, report).Info("import previewed", resultAttrs(report)...)
	return report, nil
}

// Import runs the pipeline over r, saves the valid buildings, records the
// import in the history table and publishes an ImportCompleted event.
// History and event failures are logged, not returned.
func (s *Service) Import(ctx context.Context, fileName string, r io.Reader) (*ImportReport, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	report, err := s.run(fileName, r)
	if err != nil {
		return nil, err
	}
	log := s.logger(ctx, report)

	saveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary := s.store.SaveBuildings(saveCtx, report.Result.ValidBuildings)
	report.Save = &summary
	report.DurationMs = s.now().Sub(report.StartedAt).Milliseconds()

	for _, f := range summary.Failures {
		log.Warn("building not saved", "building_id", f.BuildingID, "error", f.Error)
	}
	if err := s.store.RecordImport(saveCtx, importRecord(report)); err != nil {
		log.Error("record import history", "error", err)
	}
	if err := s.publisher.PublishImportCompleted(saveCtx, s.completedEvent(report)); err != nil {
		log.Error("publish import completed", "error", err)
	}

	log.Info("import completed", append(resultAttrs(report),
		"saved", summary.Succeeded,
		"save_failed", summary.Failed,
	)...)
	return report, nil
}

func (s *Service) run(fileName string, r io.Reader) (*ImportReport, error) {
	start := s.now()
	text, err := ReadInput(r, s.maxFileSize)
	if err != nil {
		return nil, err
	}

	res := s.importer.Import(text)
	return &ImportReport{
		ImportID:   uuid.New(),
		FileName:   fileName,
		Result:     res,
		StartedAt:  start,
		DurationMs: s.now().Sub(start).Milliseconds(),
	}, nil
}

func (s *Service) logger(ctx context.Context, report *ImportReport) *slog.Logger {
	log := logging.WithImport(ctx, report.ImportID.String(), report.FileName)
	if ip := ClientIPFromContext(ctx); ip != "" {
		log = log.With("client_ip", ip)
	}
	return log
}

func resultAttrs(report *ImportReport) []any {
	st := report.Result.Stats
	return []any{
		"rows", st.Rows,
		"buildings", st.ValidBuildings,
		"units", st.ValidUnits,
		"invalid_buildings", st.InvalidBuildings,
		"invalid_units", st.InvalidUnits,
		"row_errors", st.RowErrors,
		"missing_columns", len(report.Result.MissingColumns),
		"duration_ms", report.DurationMs,
	}
}

func importRecord(report *ImportReport) store.ImportRecord {
	st := report.Result.Stats
	rec := store.ImportRecord{
		ID:              report.ImportID,
		FileName:        report.FileName,
		Rows:            st.Rows,
		ValidBuildings:  st.ValidBuildings,
		ValidUnits:      st.ValidUnits,
		InvalidEntities: len(report.Result.InvalidEntities),
		RowErrors:       st.RowErrors,
		DurationMs:      report.DurationMs,
		CreatedAt:       report.StartedAt.UTC(),
	}
	if report.Save != nil {
		rec.Saved = report.Save.Succeeded
		rec.SaveFailed = report.Save.Failed
	}
	return rec
}

func (s *Service) completedEvent(report *ImportReport) events.ImportCompleted {
	ids := make([]string, 0, len(report.Result.ValidBuildings))
	for _, b := range report.Result.ValidBuildings {
		ids = append(ids, b.ID)
	}
	evt := events.ImportCompleted{
		ImportID:        report.ImportID,
		FileName:        report.FileName,
		BuildingIDs:     ids,
		ValidUnits:      report.Result.Stats.ValidUnits,
		InvalidEntities: len(report.Result.InvalidEntities),
		RowErrors:       report.Result.Stats.RowErrors,
		CompletedAt:     s.now().UTC(),
	}
	if report.Save != nil {
		evt.SavedBuildings = report.Save.Succeeded
		evt.FailedBuildings = report.Save.Failed
	}
	return evt
}

// ListBuildings returns every stored building with its units.
func (s *Service) ListBuildings(ctx context.Context) ([]listing.Building, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	buildings, err := s.store.ListBuildings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return buildings, nil
}

// GetBuilding returns one stored building. Unknown ids yield an error
// matching store.ErrNotFound.
func (s *Service) GetBuilding(ctx context.Context, id string) (listing.Building, error) {
	if s.store == nil {
		return listing.Building{}, ErrNoStore
	}
	return s.store.GetBuilding(ctx, id)
}

// ListImports returns the most recent import history entries.
func (s *Service) ListImports(ctx context.Context, limit int) ([]store.ImportRecord, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	records, err := s.store.ListImports(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return records, nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
