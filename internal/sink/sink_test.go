package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eventstream/internal/ledgertest"
	"eventstream/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(t *testing.T) models.Event {
	t.Helper()
	id, err := models.NewEventID(models.EventPosition{Ledger: 77, Tx: 1, Op: 1, Event: 2})
	require.NoError(t, err)
	return models.Event{
		ID:                       id,
		Type:                     models.EventTypeContract,
		Ledger:                   77,
		LedgerClosedAt:           time.Unix(ledgertest.CloseTime, 0).UTC(),
		ContractID:               ledgertest.ContractAddress(4),
		TxHash:                   "ff00",
		InSuccessfulContractCall: true,
		Topics:                   []xdr.ScVal{ledgertest.Symbol("transfer"), ledgertest.U32(8)},
		Value:                    ledgertest.U32(1000),
	}
}

func TestNewRecord(t *testing.T) {
	ev := testEvent(t)
	rec, err := NewRecord(ev)
	require.NoError(t, err)

	assert.Equal(t, ev.ID, rec.ID)
	assert.Equal(t, ev.ContractID, rec.ContractID)
	assert.Equal(t, []interface{}{"transfer", uint32(8)}, rec.Topics)
	assert.Equal(t, uint32(1000), rec.Value)
	require.Len(t, rec.TopicsXDR, 2)

	var decoded xdr.ScVal
	require.NoError(t, xdr.SafeUnmarshalBase64(rec.TopicsXDR[0], &decoded))
	assert.Equal(t, ledgertest.Symbol("transfer"), decoded)
	require.NoError(t, xdr.SafeUnmarshalBase64(rec.ValueXDR, &decoded))
	assert.Equal(t, ledgertest.U32(1000), decoded)
}

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	confirms  chan amqp.Confirmation
	ack       bool
	hold      bool // publish without confirming
	err       error
	closed    bool
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, exchange+"/"+key)
	if !c.hold {
		c.confirms <- amqp.Confirmation{DeliveryTag: uint64(len(c.published)), Ack: c.ack}
	}
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPSinkPublishes(t *testing.T) {
	ch := &fakeChannel{confirms: make(chan amqp.Confirmation, 1), ack: true}
	s := newAMQPSink(ch, ch.confirms, "stellar")

	rec, err := NewRecord(testEvent(t))
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), rec))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "stellar/events.contract", ch.keys[0])
	assert.Equal(t, rec.ID, msg.MessageId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)

	var body models.EventRecord
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, rec.ID, body.ID)
	assert.Equal(t, rec.TopicsXDR, body.TopicsXDR)

	require.NoError(t, s.Close())
	assert.True(t, ch.closed)
}

func TestAMQPSinkNack(t *testing.T) {
	ch := &fakeChannel{confirms: make(chan amqp.Confirmation, 1), ack: false}
	s := newAMQPSink(ch, ch.confirms, "stellar")

	rec, err := NewRecord(testEvent(t))
	require.NoError(t, err)
	assert.Error(t, s.Write(context.Background(), rec))

	ch.err = amqp.ErrClosed
	assert.ErrorIs(t, s.Write(context.Background(), rec), amqp.ErrClosed)
}

func TestAMQPSinkSkipsConfirmOfAbandonedWrite(t *testing.T) {
	ch := &fakeChannel{confirms: make(chan amqp.Confirmation, 2), hold: true}
	s := newAMQPSink(ch, ch.confirms, "stellar")

	rec, err := NewRecord(testEvent(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Write(ctx, rec), context.Canceled)
	require.Len(t, ch.published, 1)

	// the broker rejects the abandoned message after the caller gave up on it
	ch.confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: false}
	ch.hold, ch.ack = false, true

	require.NoError(t, s.Write(context.Background(), rec))
	require.Len(t, ch.published, 2)
	assert.Empty(t, ch.confirms)
}

type fakeRepo struct {
	saved []models.EventRecord
	err   error
}

func (r *fakeRepo) EnsureSchema(context.Context) error { return nil }

func (r *fakeRepo) SaveEvent(_ context.Context, rec *models.EventRecord) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.saved = append(r.saved, *rec)
	return true, nil
}

func (r *fakeRepo) ListEvents(context.Context, string, int, int) ([]models.EventRecord, error) {
	return r.saved, nil
}

func (r *fakeRepo) GetLastProcessedLedger(context.Context) (uint32, error) { return 0, nil }
func (r *fakeRepo) Ping(context.Context) error                            { return nil }
func (r *fakeRepo) Close() error                                           { return nil }

func TestPostgresSink(t *testing.T) {
	repo := &fakeRepo{}
	s := NewPostgresSink(repo)

	rec, err := NewRecord(testEvent(t))
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), rec))
	require.Len(t, repo.saved, 1)
	assert.Equal(t, rec.ID, repo.saved[0].ID)

	repo.err = errors.New("db down")
	assert.Error(t, s.Write(context.Background(), rec))
	assert.Equal(t, "postgres", s.Name())
}

func TestLogSink(t *testing.T) {
	rec, err := NewRecord(testEvent(t))
	require.NoError(t, err)
	assert.NoError(t, NewLogSink(nil).Write(context.Background(), rec))
}
