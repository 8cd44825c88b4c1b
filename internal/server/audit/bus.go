// Package audit records security events durably and fans them out to live
// observers.
package audit

import (
	"context"

	"github.com/SakshiM22/secure-vault/internal/clockx"
	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/SakshiM22/secure-vault/internal/server/repositories/events"
)

const (
	DefaultRecent = 500
	MaxRecent     = 500
)

// Broker receives events after they are stored. Publish must not block.
type Broker interface {
	Publish(ev models.AuditEvent)
}

type Bus struct {
	store   events.Repository
	clock   clockx.Clock
	log     logging.Logger
	hub     *Hub
	brokers []Broker
}

// NewBus builds a bus with its own Hub; extra brokers (NATS) are published
// to after the hub.
func NewBus(store events.Repository, clock clockx.Clock, log logging.Logger, extra ...Broker) *Bus {
	hub := NewHub(DefaultSubscriberBuffer)
	return &Bus{
		store:   store,
		clock:   clock,
		log:     log,
		hub:     hub,
		brokers: append([]Broker{hub}, extra...),
	}
}

// Record appends ev to the durable log and then publishes it. The append
// is not cancelled with ctx. A failed append is returned and nothing is
// published.
func (b *Bus) Record(ctx context.Context, ev models.AuditEvent) (models.AuditEvent, error) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = b.clock.Now()
	}

	if err := b.store.Append(context.WithoutCancel(ctx), &ev); err != nil {
		return ev, err
	}

	for _, br := range b.brokers {
		br.Publish(ev)
	}
	return ev, nil
}

// Emit records an event and logs, rather than returns, a failed append.
func (b *Bus) Emit(ctx context.Context, email, action string, outcome models.Outcome, origin string) {
	ev := models.NewAuditEvent(email, action, outcome, origin)
	if _, err := b.Record(ctx, ev); err != nil {
		b.log.Error(ctx, "audit append failed",
			"action", action, "outcome", string(outcome), "email", email, "error", err)
	}
}

func (b *Bus) Subscribe() *Subscription {
	return b.hub.Subscribe()
}

// Recent returns the newest n events; n outside (0, MaxRecent] means
// DefaultRecent.
func (b *Bus) Recent(ctx context.Context, n int) ([]models.AuditEvent, error) {
	if n <= 0 || n > MaxRecent {
		n = DefaultRecent
	}
	return b.store.Recent(ctx, n)
}

// Close ends all live subscriptions.
func (b *Bus) Close() {
	b.hub.Close()
}
