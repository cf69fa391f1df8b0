package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	kinds      []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.declared = append(c.declared, name)
	c.kinds = append(c.kinds, kind)
	return c.declareErr
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestNewAMQPPublisher(t *testing.T) {
	tests := []struct {
		name       string
		exchange   string
		kind       string
		declareErr error
		wantErr    bool
		wantKind   string
	}{
		{name: "default kind is topic", exchange: "listings", wantKind: amqp.ExchangeTopic},
		{name: "explicit kind", exchange: "listings", kind: amqp.ExchangeFanout, wantKind: amqp.ExchangeFanout},
		{name: "missing exchange", exchange: "", wantErr: true},
		{name: "declare fails", exchange: "listings", declareErr: errors.New("access refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{declareErr: tt.declareErr}
			p, err := NewAMQPPublisher(ch, tt.exchange, tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.exchange}, ch.declared)
			assert.Equal(t, []string{tt.wantKind}, ch.kinds)
		})
	}
}

func TestPublishImportCompleted(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewAMQPPublisher(ch, "listings", "")
	require.NoError(t, err)

	evt := ImportCompleted{
		ImportID:       uuid.New(),
		FileName:       "export.csv",
		BuildingIDs:    []string{"ap_parque-sur"},
		ValidUnits:     2,
		SavedBuildings: 1,
		CompletedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishImportCompleted(context.Background(), evt))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "listings", got.exchange)
	assert.Equal(t, RoutingKeyImportCompleted, got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, evt.ImportID.String(), got.msg.MessageId)

	var decoded ImportCompleted
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, evt, decoded)
}

func TestPublishImportCompleted_Errors(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewAMQPPublisher(ch, "listings", "")
	require.NoError(t, err)

	err = p.PublishImportCompleted(context.Background(), ImportCompleted{ImportID: uuid.New()})
	assert.ErrorContains(t, err, "channel closed")

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.ErrorContains(t, p.PublishImportCompleted(context.Background(), ImportCompleted{}), "closed")
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishImportCompleted(context.Background(), ImportCompleted{}))
	assert.NoError(t, p.Close())
}
