package dedup

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"teams-message-relay-go/internal/model"
)

// MarkerStore is the presence-marker cache consulted by the filter
type MarkerStore interface {
	CheckAndSet(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	ClearMarker(ctx context.Context, messageID string) error
}

// Filter partitions candidate batches into unique and already-seen records
// using time-bounded presence markers. The filter fails open: when the
// marker store is unreachable, records are treated as unique and ingestion
// proceeds, the store's uniqueness constraint keeps the result correct.
type Filter struct {
	store MarkerStore
	ttl   time.Duration
}

// NewFilter creates a Filter with the given marker expiry
func NewFilter(store MarkerStore, ttl time.Duration) *Filter {
	return &Filter{store: store, ttl: ttl}
}

// Partition check-and-sets a marker for every record, in input order, and
// returns the records whose markers were newly set (unique) and those whose
// markers were already present (duplicates). Input order is preserved
// within each list.
func (f *Filter) Partition(ctx context.Context, records []model.IncomingMessage) (unique, duplicates []model.IncomingMessage) {
	for _, record := range records {
		newlySet, err := f.store.CheckAndSet(ctx, record.MessageID, f.ttl)
		if err != nil {
			logrus.Warnf("Dedup cache unavailable for message %s, treating as unique: %v", record.MessageID, err)
			unique = append(unique, record)
			continue
		}
		if newlySet {
			unique = append(unique, record)
		} else {
			duplicates = append(duplicates, record)
		}
	}
	return unique, duplicates
}

// Release clears the markers set for records whose write was rolled back.
// Without this a retry of the same batch would be swallowed as duplicates
// while no row exists. Best-effort: a marker that cannot be cleared expires
// with its TTL and is logged.
func (f *Filter) Release(ctx context.Context, records []model.IncomingMessage) {
	for _, record := range records {
		if err := f.store.ClearMarker(ctx, record.MessageID); err != nil {
			logrus.Warnf("Failed to clear dedup marker for message %s: %v", record.MessageID, err)
		}
	}
}
