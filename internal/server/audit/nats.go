package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/fxamacker/cbor/v2"
	"github.com/nats-io/nats.go"
)

const DefaultNATSSubject = "vault.audit"

// wireEvent is the CBOR body published to NATS.
type wireEvent struct {
	ID        int64  `cbor:"1,keyasint"`
	Email     string `cbor:"2,keyasint,omitempty"`
	Action    string `cbor:"3,keyasint"`
	Outcome   string `cbor:"4,keyasint"`
	Origin    string `cbor:"5,keyasint,omitempty"`
	CreatedAt int64  `cbor:"6,keyasint"`
}

var encMode, _ = cbor.CoreDetEncOptions().EncMode()

func encodeEvent(ev models.AuditEvent) ([]byte, error) {
	return encMode.Marshal(wireEvent{
		ID:        ev.ID,
		Email:     ev.Email(),
		Action:    ev.Action,
		Outcome:   string(ev.Outcome),
		Origin:    ev.OriginAddr,
		CreatedAt: ev.CreatedAt.UnixNano(),
	})
}

// DecodeEvent parses a message published by NATSBroker.
func DecodeEvent(data []byte) (models.AuditEvent, error) {
	var w wireEvent
	if err := cbor.Unmarshal(data, &w); err != nil {
		return models.AuditEvent{}, err
	}
	ev := models.NewAuditEvent(w.Email, w.Action, models.Outcome(w.Outcome), w.Origin)
	ev.ID = w.ID
	ev.CreatedAt = time.Unix(0, w.CreatedAt).UTC()
	return ev, nil
}

// NATSBroker mirrors events onto a NATS subject. nats.Conn.Publish only
// buffers, so Publish does not wait on the network.
type NATSBroker struct {
	conn    *nats.Conn
	subject string
	log     logging.Logger
}

func NewNATSBroker(url, subject string, log logging.Logger) (*NATSBroker, error) {
	if subject == "" {
		subject = DefaultNATSSubject
	}

	ctx := context.Background()
	conn, err := nats.Connect(url,
		nats.Name("secure-vault-audit"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn(ctx, "nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(ctx, "nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSBroker{conn: conn, subject: subject, log: log}, nil
}

func (b *NATSBroker) Publish(ev models.AuditEvent) {
	data, err := encodeEvent(ev)
	if err != nil {
		b.log.Warn(context.Background(), "encode audit event", "error", err)
		return
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		b.log.Warn(context.Background(), "publish audit event", "subject", b.subject, "error", err)
	}
}

func (b *NATSBroker) Close() {
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}
