package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusperks/realtime-service/internal/events"
	"github.com/campusperks/realtime-service/internal/metrics"
	"github.com/campusperks/realtime-service/internal/model"
)

// Domain event kinds published by the marketplace backend.
const (
	KindNotification        = "notification"
	KindOfferCreated        = "offer-created"
	KindOfferUpdated        = "offer-updated"
	KindApprovalChanged     = "approval-changed"
	KindVerificationChanged = "verification-changed"
	KindSuspensionChanged   = "suspension-changed"
)

var errUnknownKind = errors.New("unknown event kind")

// DomainEvent is the JSON shape on the marketplace.events topic. Events of
// kind "notification" carry a record to persist; the rest are pure pushes.
type DomainEvent struct {
	Kind         string              `json:"kind"`
	Target       events.Target       `json:"target"`
	Payload      json.RawMessage     `json:"payload,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// Creator is the slice of the notification service the stream needs.
type Creator interface {
	Create(ctx context.Context, n *model.Notification) error
}

type Emitter interface {
	Emit(ev events.Event) error
}

type DLQ interface {
	Publish(ctx context.Context, raw []byte) error
}

type Handler struct {
	svc            Creator
	emitter        Emitter
	dlq            DLQ
	maxRetries     int
	retryBackoffMs int
	logger         *zap.SugaredLogger
}

func NewHandler(svc Creator, emitter Emitter, dlq DLQ, maxRetries, retryBackoffMs int, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		svc:            svc,
		emitter:        emitter,
		dlq:            dlq,
		maxRetries:     maxRetries,
		retryBackoffMs: retryBackoffMs,
		logger:         logger,
	}
}

// HandleEvent processes one raw message. Transient failures are retried
// with exponential backoff; permanent ones (malformed, bad addressing) and
// exhausted retries go to the DLQ so the consumer never wedges on a message.
func (h *Handler) HandleEvent(ctx context.Context, raw []byte) error {
	var ev DomainEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Errorw("malformed domain event", "err", err)
		return h.pushToDLQ(ctx, raw)
	}

	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			sleep := time.Duration(h.retryBackoffMs*(1<<uint(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
		err := h.processOnce(ctx, &ev)
		if err == nil {
			return nil
		}
		lastErr = err
		if isPermanent(err) {
			break
		}
		h.logger.Warnw("domain event attempt failed", "kind", ev.Kind, "attempt", attempt, "err", err)
	}

	h.logger.Errorw("domain event unprocessable, pushing to DLQ", "kind", ev.Kind, "err", lastErr)
	if err := h.pushToDLQ(ctx, raw); err != nil {
		return fmt.Errorf("handle failed (%w) and dlq push failed: %v", lastErr, err)
	}
	return lastErr
}

func (h *Handler) processOnce(ctx context.Context, ev *DomainEvent) error {
	switch ev.Kind {
	case KindNotification:
		if ev.Notification == nil {
			return fmt.Errorf("%w: notification event without record", errUnknownKind)
		}
		return h.svc.Create(ctx, ev.Notification)

	case KindOfferCreated, KindOfferUpdated:
		var p events.OfferPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		name := events.EvtOfferCreated
		if ev.Kind == KindOfferUpdated {
			name = events.EvtOfferUpdated
		}
		return h.emitter.Emit(events.Event{Name: name, Target: ev.Target, Payload: p})

	case KindApprovalChanged, KindVerificationChanged, KindSuspensionChanged:
		var p events.StatusChangePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		return h.emitter.Emit(events.Event{Name: eventNameForKind(ev.Kind), Target: ev.Target, Payload: p})
	}
	return fmt.Errorf("%w: %q", errUnknownKind, ev.Kind)
}

func eventNameForKind(kind string) string {
	switch kind {
	case KindApprovalChanged:
		return events.EvtApprovalChanged
	case KindVerificationChanged:
		return events.EvtVerificationChanged
	default:
		return events.EvtSuspensionChanged
	}
}

// isPermanent reports whether retrying cannot help.
func isPermanent(err error) bool {
	switch {
	case errors.Is(err, errUnknownKind),
		errors.Is(err, model.ErrNoAddressing),
		errors.Is(err, model.ErrAmbiguousAddressing),
		errors.Is(err, model.ErrInvalidType),
		errors.Is(err, events.ErrNoTarget):
		return true
	}
	var jsonErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &jsonErr) || errors.As(err, &typeErr)
}

func (h *Handler) pushToDLQ(ctx context.Context, raw []byte) error {
	metrics.StreamDLQ.Inc()
	return h.dlq.Publish(ctx, raw)
}
