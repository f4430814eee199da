package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"teams-message-relay-go/internal/metrics"
	"teams-message-relay-go/internal/model"
	"teams-message-relay-go/internal/notify"
)

// MessageStore is the transactional store behind the ingestor
type MessageStore interface {
	UpsertBatch(ctx context.Context, messages []model.Message) error
}

// Deduper partitions a batch into unique and already-seen records. Release
// undoes the markers Partition set for records whose write did not commit.
type Deduper interface {
	Partition(ctx context.Context, records []model.IncomingMessage) (unique, duplicates []model.IncomingMessage)
	Release(ctx context.Context, records []model.IncomingMessage)
}

// CacheInvalidator drops derived read caches after a successful write
type CacheInvalidator interface {
	InvalidateStats(ctx context.Context) error
}

// Notifier fans out events to connected observers
type Notifier interface {
	Publish(name string, payload interface{}) (delivered, dropped int)
}

// ValidationError rejects a whole batch before any side effect
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("batch validation failed: %d invalid fields", len(e.Fields))
}

// Result is the accounting returned for every non-rejected ingest call.
// Inserted + Duplicates + Errors == Processed always holds.
type Result struct {
	Processed  int
	Inserted   int
	Duplicates int
	Errors     int
}

// Ingestor validates, deduplicates and persists message batches
type Ingestor struct {
	store        MessageStore
	dedup        Deduper
	invalidator  CacheInvalidator
	hub          Notifier
	metrics      *metrics.Metrics
	maxBatchSize int
}

// NewIngestor creates a batch ingestor
func NewIngestor(store MessageStore, dedup Deduper, invalidator CacheInvalidator, hub Notifier, m *metrics.Metrics, maxBatchSize int) *Ingestor {
	if maxBatchSize <= 0 {
		maxBatchSize = 1000
	}
	return &Ingestor{
		store:        store,
		dedup:        dedup,
		invalidator:  invalidator,
		hub:          hub,
		metrics:      m,
		maxBatchSize: maxBatchSize,
	}
}

// Ingest processes one batch. A *ValidationError is returned before any
// side effect when the batch is malformed; otherwise the call always
// returns accounting, a failed transactional write is reported through the
// Errors count rather than an error.
func (i *Ingestor) Ingest(ctx context.Context, records []model.IncomingMessage, extractionID string) (*Result, error) {
	start := time.Now()
	i.metrics.BatchCount.Inc()

	if err := i.validate(records); err != nil {
		i.metrics.ValidationErrors.Inc()
		return nil, err
	}

	unique, duplicates := i.dedup.Partition(ctx, records)

	result := &Result{
		Processed:  len(records),
		Duplicates: len(duplicates),
	}

	if len(unique) > 0 {
		rows := make([]model.Message, 0, len(unique))
		for _, record := range unique {
			rows = append(rows, toRow(record, extractionID))
		}

		if err := i.store.UpsertBatch(ctx, rows); err != nil {
			logrus.Errorf("Batch upsert failed for extraction %s, %d records rolled back: %v", extractionID, len(unique), err)
			// the rolled-back records have no row, their markers must go
			// too or a retry of the batch would be dropped as duplicates
			i.dedup.Release(ctx, unique)
			result.Errors = len(unique)
			i.metrics.IngestErrors.Add(float64(len(unique)))
			i.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
			return result, nil
		}
		result.Inserted = len(unique)
	}

	i.metrics.MessagesInserted.Add(float64(result.Inserted))
	i.metrics.DuplicatesSkipped.Add(float64(result.Duplicates))

	if result.Inserted > 0 {
		if err := i.invalidator.InvalidateStats(ctx); err != nil {
			logrus.Warnf("Failed to invalidate stats cache: %v", err)
		}
		_, dropped := i.hub.Publish(notify.EventMessagesBatch, map[string]interface{}{
			"count":        result.Inserted,
			"extractionId": extractionID,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		})
		i.metrics.NotifyPublished.Inc()
		i.metrics.NotifyDropped.Add(float64(dropped))
	}

	i.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
	logrus.Infof("Ingested batch for extraction %s: processed=%d inserted=%d duplicates=%d errors=%d",
		extractionID, result.Processed, result.Inserted, result.Duplicates, result.Errors)
	return result, nil
}

// validate rejects the whole call on any malformed record. No partial
// validation: nothing is written when this fails.
func (i *Ingestor) validate(records []model.IncomingMessage) error {
	fields := make(map[string]string)

	if len(records) == 0 {
		fields["messages"] = "batch must contain at least one message"
	}
	if len(records) > i.maxBatchSize {
		fields["messages"] = fmt.Sprintf("batch exceeds maximum size of %d", i.maxBatchSize)
	}

	for idx, record := range records {
		prefix := fmt.Sprintf("messages[%d]", idx)
		if strings.TrimSpace(record.MessageID) == "" {
			fields[prefix+".messageId"] = "messageId is required"
		}
		if strings.TrimSpace(record.Content) == "" {
			fields[prefix+".content"] = "content is required and must be non-empty"
		}
		if strings.TrimSpace(record.Sender.Name) == "" {
			fields[prefix+".sender.name"] = "sender name is required"
		}
		if record.Timestamp.IsZero() {
			fields[prefix+".timestamp"] = "timestamp is required"
		}
		if record.Type != "" && !model.ValidMessageType(record.Type) {
			fields[prefix+".type"] = "type must be one of message, reply, system"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// toRow maps an incoming record onto a storable message row
func toRow(record model.IncomingMessage, extractionID string) model.Message {
	messageType := record.Type
	if messageType == "" {
		messageType = model.MessageTypeMessage
	}

	attachments := rawListJSON(record.Attachments)
	reactions := rawListJSON(record.Reactions)

	metadata := record.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return model.Message{
		MessageID:    record.MessageID,
		Channel:      record.Channel,
		ChannelName:  record.ChannelName,
		Content:      record.Content,
		SenderID:     record.Sender.ID,
		SenderName:   record.Sender.Name,
		SenderEmail:  record.Sender.Email,
		Timestamp:    record.Timestamp,
		SourceURL:    record.SourceURL,
		Type:         messageType,
		ThreadID:     record.ThreadID,
		Attachments:  attachments,
		Reactions:    reactions,
		Metadata:     datatypes.JSONMap(metadata),
		ExtractionID: extractionID,
	}
}

func rawListJSON(list []json.RawMessage) datatypes.JSON {
	if len(list) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	data, err := json.Marshal(list)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}
