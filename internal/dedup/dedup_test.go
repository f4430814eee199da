package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teams-message-relay-go/internal/model"
)

// fakeMarkerStore tracks markers in memory and can simulate an outage
type fakeMarkerStore struct {
	seen map[string]bool
	down bool
}

func newFakeMarkerStore() *fakeMarkerStore {
	return &fakeMarkerStore{seen: make(map[string]bool)}
}

func (s *fakeMarkerStore) CheckAndSet(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if s.down {
		return false, errors.New("connection refused")
	}
	if s.seen[messageID] {
		return false, nil
	}
	s.seen[messageID] = true
	return true, nil
}

func (s *fakeMarkerStore) ClearMarker(ctx context.Context, messageID string) error {
	if s.down {
		return errors.New("connection refused")
	}
	delete(s.seen, messageID)
	return nil
}

func record(id string) model.IncomingMessage {
	return model.IncomingMessage{MessageID: id}
}

func TestPartitionSplitsUniqueAndDuplicate(t *testing.T) {
	store := newFakeMarkerStore()
	store.seen["m2"] = true

	filter := NewFilter(store, 24*time.Hour)
	unique, duplicates := filter.Partition(context.Background(), []model.IncomingMessage{
		record("m1"), record("m2"), record("m3"),
	})

	assert.Len(t, unique, 2)
	assert.Len(t, duplicates, 1)
	assert.Equal(t, "m1", unique[0].MessageID)
	assert.Equal(t, "m3", unique[1].MessageID)
	assert.Equal(t, "m2", duplicates[0].MessageID)
}

func TestPartitionPreservesInputOrder(t *testing.T) {
	store := newFakeMarkerStore()
	store.seen["b"] = true
	store.seen["d"] = true

	filter := NewFilter(store, 24*time.Hour)
	unique, duplicates := filter.Partition(context.Background(), []model.IncomingMessage{
		record("a"), record("b"), record("c"), record("d"), record("e"),
	})

	uniqueIDs := []string{}
	for _, r := range unique {
		uniqueIDs = append(uniqueIDs, r.MessageID)
	}
	duplicateIDs := []string{}
	for _, r := range duplicates {
		duplicateIDs = append(duplicateIDs, r.MessageID)
	}

	assert.Equal(t, []string{"a", "c", "e"}, uniqueIDs)
	assert.Equal(t, []string{"b", "d"}, duplicateIDs)
}

func TestPartitionSetsMarkersForNewRecords(t *testing.T) {
	store := newFakeMarkerStore()
	filter := NewFilter(store, 24*time.Hour)

	filter.Partition(context.Background(), []model.IncomingMessage{record("m1")})
	_, duplicates := filter.Partition(context.Background(), []model.IncomingMessage{record("m1")})

	assert.Len(t, duplicates, 1)
}

func TestReleaseMakesRecordsUniqueAgain(t *testing.T) {
	store := newFakeMarkerStore()
	filter := NewFilter(store, 24*time.Hour)

	batch := []model.IncomingMessage{record("m1"), record("m2")}
	unique, _ := filter.Partition(context.Background(), batch)
	assert.Len(t, unique, 2)

	filter.Release(context.Background(), unique)

	unique, duplicates := filter.Partition(context.Background(), batch)
	assert.Len(t, unique, 2)
	assert.Empty(t, duplicates)
}

func TestReleaseToleratesCacheOutage(t *testing.T) {
	store := newFakeMarkerStore()
	filter := NewFilter(store, 24*time.Hour)

	unique, _ := filter.Partition(context.Background(), []model.IncomingMessage{record("m1")})

	store.down = true
	assert.NotPanics(t, func() {
		filter.Release(context.Background(), unique)
	})
}

func TestPartitionFailsOpenWhenCacheUnavailable(t *testing.T) {
	store := newFakeMarkerStore()
	store.down = true

	filter := NewFilter(store, 24*time.Hour)
	unique, duplicates := filter.Partition(context.Background(), []model.IncomingMessage{
		record("m1"), record("m2"),
	})

	assert.Len(t, unique, 2)
	assert.Empty(t, duplicates)
}
