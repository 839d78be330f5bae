package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
	"github.com/kirillkom/denial-appeal-assistant/internal/infrastructure/resilience"
)

// publishPolicy governs retries and error reporting for one kind of event.
// Each policy runs under its own breaker.
type publishPolicy struct {
	operation string
	// notifyOnly events are sent after the work they announce is stored;
	// they are attempted once.
	notifyOnly bool
}

var (
	ingestedPolicy  = publishPolicy{operation: "nats.publish.document_ingested"}
	completedPolicy = publishPolicy{operation: "nats.publish.analysis_completed", notifyOnly: true}
)

func (p publishPolicy) classify(err error) resilience.ErrorClassification {
	class := classifyNATSError(err)
	if p.notifyOnly {
		class.Retryable = false
	}
	return class
}

// wrap tags connection-level failures as temporary so callers answer 503.
// A document that cannot be queued is otherwise a plain error.
func (p publishPolicy) wrap(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, p.operation, err)
	}
	return err
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	switch {
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrConnectionReconnecting),
		errors.Is(err, nats.ErrDisconnected):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.Is(err, nats.ErrMaxPayload), errors.Is(err, nats.ErrBadSubject):
		// Malformed publishes say nothing about server health.
		return resilience.ErrorClassification{}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}
