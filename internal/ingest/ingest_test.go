package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teams-message-relay-go/internal/metrics"
	"teams-message-relay-go/internal/model"
	"teams-message-relay-go/internal/notify"
)

// one registry per test binary, prometheus collectors cannot be registered twice
var testMetrics = metrics.NewMetrics()

type fakeStore struct {
	rows    map[string]model.Message
	fail    bool
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]model.Message)}
}

func (s *fakeStore) UpsertBatch(ctx context.Context, messages []model.Message) error {
	if s.fail {
		return errors.New("deadlock found when trying to get lock")
	}
	for _, m := range messages {
		s.rows[m.MessageID] = m
	}
	s.upserts++
	return nil
}

// fakeDeduper marks ids as seen across calls, like the marker cache does
type fakeDeduper struct {
	seen     map[string]bool
	passThru bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (d *fakeDeduper) Partition(ctx context.Context, records []model.IncomingMessage) (unique, duplicates []model.IncomingMessage) {
	for _, r := range records {
		if !d.passThru && d.seen[r.MessageID] {
			duplicates = append(duplicates, r)
			continue
		}
		d.seen[r.MessageID] = true
		unique = append(unique, r)
	}
	return unique, duplicates
}

func (d *fakeDeduper) Release(ctx context.Context, records []model.IncomingMessage) {
	for _, r := range records {
		delete(d.seen, r.MessageID)
	}
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateStats(ctx context.Context) error {
	f.calls++
	return nil
}

type publishedEvent struct {
	name    string
	payload interface{}
}

type fakeNotifier struct {
	events []publishedEvent
}

func (f *fakeNotifier) Publish(name string, payload interface{}) (int, int) {
	f.events = append(f.events, publishedEvent{name: name, payload: payload})
	return 1, 0
}

func validRecord(id string) model.IncomingMessage {
	return model.IncomingMessage{
		MessageID: id,
		Content:   "hi",
		Sender:    model.IncomingSender{Name: "A"},
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestIngestor(store *fakeStore, dedup *fakeDeduper, inv *fakeInvalidator, hub *fakeNotifier) *Ingestor {
	return NewIngestor(store, dedup, inv, hub, testMetrics, 1000)
}

func TestIngestInsertsUniqueRecords(t *testing.T) {
	store := newFakeStore()
	inv := &fakeInvalidator{}
	hub := &fakeNotifier{}
	ingestor := newTestIngestor(store, newFakeDeduper(), inv, hub)

	result, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{
		validRecord("m1"), validRecord("m2"),
	}, "e1")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 0, result.Errors)
	assert.Len(t, store.rows, 2)
	assert.Equal(t, 1, inv.calls)

	require.Len(t, hub.events, 1)
	assert.Equal(t, notify.EventMessagesBatch, hub.events[0].name)
	payload := hub.events[0].payload.(map[string]interface{})
	assert.Equal(t, 2, payload["count"])
	assert.Equal(t, "e1", payload["extractionId"])
}

func TestIngestCountInvariant(t *testing.T) {
	store := newFakeStore()
	dedup := newFakeDeduper()
	dedup.seen["m2"] = true
	ingestor := newTestIngestor(store, dedup, &fakeInvalidator{}, &fakeNotifier{})

	result, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{
		validRecord("m1"), validRecord("m2"), validRecord("m3"),
	}, "e1")

	require.NoError(t, err)
	assert.Equal(t, result.Processed, result.Inserted+result.Duplicates+result.Errors)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Duplicates)
}

func TestIngestIdempotentWithWarmCache(t *testing.T) {
	store := newFakeStore()
	ingestor := newTestIngestor(store, newFakeDeduper(), &fakeInvalidator{}, &fakeNotifier{})

	first, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1")}, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1")}, "e1")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)
	assert.Len(t, store.rows, 1)
}

func TestIngestIdempotentWithExpiredCache(t *testing.T) {
	// an expired marker sends the record back through the upsert, which
	// must update in place rather than create a second row
	store := newFakeStore()
	dedup := newFakeDeduper()
	dedup.passThru = true
	ingestor := newTestIngestor(store, dedup, &fakeInvalidator{}, &fakeNotifier{})

	first, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1")}, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1")}, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Inserted)
	assert.Equal(t, 0, second.Duplicates)
	assert.Len(t, store.rows, 1)
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	store := newFakeStore()
	ingestor := newTestIngestor(store, newFakeDeduper(), &fakeInvalidator{}, &fakeNotifier{})

	_, err := ingestor.Ingest(context.Background(), nil, "e1")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "messages")
	assert.Equal(t, 0, store.upserts)
}

func TestIngestRejectsOversizedBatch(t *testing.T) {
	store := newFakeStore()
	ingestor := NewIngestor(store, newFakeDeduper(), &fakeInvalidator{}, &fakeNotifier{}, testMetrics, 3)

	records := []model.IncomingMessage{
		validRecord("m1"), validRecord("m2"), validRecord("m3"), validRecord("m4"),
	}
	_, err := ingestor.Ingest(context.Background(), records, "e1")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, store.upserts)
}

func TestIngestRejectsWholeBatchOnOneBadRecord(t *testing.T) {
	store := newFakeStore()
	ingestor := newTestIngestor(store, newFakeDeduper(), &fakeInvalidator{}, &fakeNotifier{})

	bad := validRecord("m2")
	bad.Content = "  "
	_, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1"), bad}, "e1")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "messages[1].content")
	assert.Equal(t, 0, store.upserts, "nothing may be written when validation fails")
}

func TestIngestRejectsUnknownType(t *testing.T) {
	ingestor := newTestIngestor(newFakeStore(), newFakeDeduper(), &fakeInvalidator{}, &fakeNotifier{})

	bad := validRecord("m1")
	bad.Type = "announcement"
	_, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{bad}, "e1")

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "messages[0].type")
}

func TestIngestPersistenceFailureReportedInCounts(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	inv := &fakeInvalidator{}
	hub := &fakeNotifier{}
	ingestor := newTestIngestor(store, newFakeDeduper(), inv, hub)

	result, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{
		validRecord("m1"), validRecord("m2"),
	}, "e1")

	require.NoError(t, err, "persistence failure is accounting, not an error")
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 2, result.Errors)
	assert.Equal(t, result.Processed, result.Inserted+result.Duplicates+result.Errors)
	assert.Len(t, store.rows, 0, "rolled-back rows must not be visible")
	assert.Equal(t, 0, inv.calls)
	assert.Empty(t, hub.events)
}

func TestIngestRetryLandsAfterRolledBackWrite(t *testing.T) {
	// a rolled-back write must not leave markers behind: the caller's
	// retry of the identical batch has to reach the store and land
	store := newFakeStore()
	store.fail = true
	dedup := newFakeDeduper()
	ingestor := newTestIngestor(store, dedup, &fakeInvalidator{}, &fakeNotifier{})

	first, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1")}, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Errors)
	assert.Len(t, store.rows, 0)

	store.fail = false
	second, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1")}, "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Inserted)
	assert.Equal(t, 0, second.Duplicates)
	assert.Equal(t, 0, second.Errors)
	assert.Len(t, store.rows, 1)
}

func TestIngestAllDuplicatesSkipsStoreAndNotify(t *testing.T) {
	store := newFakeStore()
	dedup := newFakeDeduper()
	dedup.seen["m1"] = true
	hub := &fakeNotifier{}
	ingestor := newTestIngestor(store, dedup, &fakeInvalidator{}, hub)

	result, err := ingestor.Ingest(context.Background(), []model.IncomingMessage{validRecord("m1")}, "e1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 0, store.upserts)
	assert.Empty(t, hub.events)
}

func TestToRowDefaults(t *testing.T) {
	row := toRow(validRecord("m1"), "e1")

	assert.Equal(t, model.MessageTypeMessage, row.Type)
	assert.Equal(t, "e1", row.ExtractionID)
	assert.JSONEq(t, "[]", string(row.Attachments))
	assert.JSONEq(t, "[]", string(row.Reactions))
	assert.NotNil(t, row.Metadata)
}
