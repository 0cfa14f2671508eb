// Package webhook delivers event notifications to customer-registered
// endpoints. Deliveries are asynchronous and fail-soft: a dead endpoint
// never blocks or fails the request that produced the event.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gateflow/gateflow/internal/config"
	"github.com/gateflow/gateflow/internal/model"
)

// Event types emitted by the gateway.
const (
	EventOrderPaid      = "order.paid"
	EventOrderRefunded  = "order.refunded"
	EventRefundCreated  = "refund_request.created"
	EventRefundApproved = "refund_request.approved"
	EventRefundDenied   = "refund_request.denied"
)

// KnownEvent reports whether the event type is one the gateway emits.
func KnownEvent(event string) bool {
	switch event {
	case EventOrderPaid, EventOrderRefunded,
		EventRefundCreated, EventRefundApproved, EventRefundDenied:
		return true
	}
	return false
}

const (
	signatureHeader = "X-GateFlow-Signature"
	eventHeader     = "X-GateFlow-Event"
	defaultTimeout  = 10 * time.Second
)

// Notifier fans events out to the active webhook endpoints and records
// every delivery attempt.
type Notifier struct {
	store   *config.Store
	client  *http.Client
	logger  *slog.Logger
	enabled bool

	wg sync.WaitGroup
}

// New creates a Notifier. A zero timeout defaults to ten seconds.
func New(store *config.Store, logger *slog.Logger, enabled bool, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		store:   store,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		enabled: enabled,
	}
}

// Emit schedules delivery of an event to every subscribed endpoint and
// returns immediately. The payload is marshaled once and shared across
// endpoints.
func (n *Notifier) Emit(event string, payload interface{}) {
	if n == nil || !n.enabled {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"data":       payload,
	})
	if err != nil {
		n.logger.Error("webhook payload marshal failed", "event", event, "error", err)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliverAll(event, body)
	}()
}

// Wait blocks until in-flight deliveries finish. Called during shutdown.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) deliverAll(event string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout+5*time.Second)
	defer cancel()

	endpoints, err := n.store.ListActiveWebhookEndpoints(ctx)
	if err != nil {
		n.logger.Error("webhook endpoint lookup failed", "event", event, "error", err)
		return
	}

	for _, ep := range endpoints {
		if !ep.WantsEvent(event) {
			continue
		}
		n.deliver(ctx, &ep, event, body)
	}
}

func (n *Notifier) deliver(ctx context.Context, ep *model.WebhookEndpoint, event string, body []byte) {
	delivery := &model.WebhookDelivery{
		EndpointID: ep.ID,
		Event:      event,
		Payload:    string(body),
	}

	start := time.Now()
	code, err := n.post(ctx, ep, event, body)
	delivery.DurationMs = float64(time.Since(start).Microseconds()) / 1000
	delivery.ResponseCode = code
	if err != nil {
		delivery.Error = err.Error()
		n.logger.Warn("webhook delivery failed",
			"endpoint_id", ep.ID, "event", event, "error", err)
	} else if code >= 200 && code < 300 {
		delivery.Success = true
	} else {
		n.logger.Warn("webhook delivery rejected",
			"endpoint_id", ep.ID, "event", event, "status", code)
	}

	if err := n.store.RecordWebhookDelivery(ctx, delivery); err != nil {
		n.logger.Error("webhook delivery log failed", "endpoint_id", ep.ID, "error", err)
	}
}

func (n *Notifier) post(ctx context.Context, ep *model.WebhookEndpoint, event string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, event)
	req.Header.Set(signatureHeader, "sha256="+Sign(ep.Secret, body))

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Sign computes the hex HMAC-SHA256 of the payload under the endpoint
// secret. Receivers recompute it to authenticate deliveries.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
