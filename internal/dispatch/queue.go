package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Target delivers one payload to the configured ingress webhook
type Target interface {
	Deliver(ctx context.Context, payload json.RawMessage) error
}

// WebhookTarget posts payloads to an HTTP endpoint, stamping receivedAt and
// attaching an API key header when configured
type WebhookTarget struct {
	url    string
	apiKey string
	client *http.Client
}

// NewWebhookTarget creates a webhook delivery target
func NewWebhookTarget(url, apiKey string, timeout time.Duration) *WebhookTarget {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookTarget{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Deliver posts the payload. Any transport error or non-2xx status is a
// failed attempt.
func (t *WebhookTarget) Deliver(ctx context.Context, payload json.RawMessage) error {
	body, err := stampReceivedAt(payload)
	if err != nil {
		return fmt.Errorf("failed to build webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("X-API-Key", t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}

// stampReceivedAt merges a receivedAt timestamp into the payload object.
// Non-object payloads are wrapped instead of merged.
func stampReceivedAt(payload json.RawMessage) ([]byte, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var obj map[string]interface{}
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return json.Marshal(map[string]interface{}{
			"payload":    payload,
			"receivedAt": now,
		})
	}
	obj["receivedAt"] = now
	return json.Marshal(obj)
}

// Queue is the client-resident durable dispatch queue. Items survive
// process restarts via the store, are delivered in enqueue order, and are
// dropped after the retry limit. Flushes are serialized: one flush runs to
// completion before the next begins, so the same queue is never
// double-sent.
type Queue struct {
	mu     sync.Mutex
	items  []Item
	store  QueueStore
	target Target
	policy RetryPolicy
	cron   *cron.Cron
}

// NewQueue creates a queue, loading any persisted items from the store
func NewQueue(store QueueStore, target Target, policy RetryPolicy) (*Queue, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	items, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load dispatch queue: %w", err)
	}

	return &Queue{
		items:  items,
		store:  store,
		target: target,
		policy: policy,
		cron:   cron.New(cron.WithSeconds()),
	}, nil
}

// Start flushes once immediately (drains anything persisted from a prior
// run) and schedules the unconditional backstop flush.
func (q *Queue) Start(ctx context.Context) error {
	if _, err := q.cron.AddFunc(q.policy.FlushSchedule, func() { q.Flush(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule flush: %w", err)
	}
	q.cron.Start()
	q.Flush(ctx)

	logrus.Infof("Dispatch queue started with %d pending items", q.Depth())
	return nil
}

// Stop halts the backstop timer
func (q *Queue) Stop() {
	stopCtx := q.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logrus.Warn("Dispatch queue stop timeout")
	}
}

// Enqueue appends the payload with attempt 0, persists, and immediately
// attempts a flush
func (q *Queue) Enqueue(ctx context.Context, payload json.RawMessage) error {
	q.mu.Lock()
	q.items = append(q.items, Item{
		Payload:    payload,
		Attempt:    0,
		EnqueuedAt: time.Now(),
	})
	err := q.store.Persist(q.items)
	q.mu.Unlock()
	if err != nil {
		return err
	}

	q.Flush(ctx)
	return nil
}

// Flush attempts delivery of every currently-queued item in stored order.
// Succeeded items are removed; failed items keep their position with the
// attempt count incremented; items at the retry limit are dropped and
// logged. The resulting list is persisted in one atomic write.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return
	}

	remaining := make([]Item, 0, len(q.items))
	for _, item := range q.items {
		if err := q.target.Deliver(ctx, item.Payload); err != nil {
			item.Attempt++
			if item.Attempt >= q.policy.MaxAttempts {
				logrus.Warnf("Dropping dispatch item after %d failed attempts: %v", item.Attempt, err)
				continue
			}
			logrus.Warnf("Dispatch attempt %d/%d failed, will retry: %v", item.Attempt, q.policy.MaxAttempts, err)
			remaining = append(remaining, item)
			continue
		}
		logrus.Debugf("Dispatched item enqueued at %s", item.EnqueuedAt.Format(time.RFC3339))
	}

	q.items = remaining
	if err := q.store.Persist(q.items); err != nil {
		logrus.Errorf("Failed to persist dispatch queue: %v", err)
	}
}

// Depth returns the number of pending items
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
