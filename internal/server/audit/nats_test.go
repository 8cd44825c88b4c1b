package audit

import (
	"testing"
	"time"

	"github.com/SakshiM22/secure-vault/internal/logging"
	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent(t *testing.T) {
	ev := models.NewAuditEvent("a@example.com", models.ActionAccountLock, models.OutcomeLocked, "10.1.2.3")
	ev.ID = 42
	ev.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 123, time.UTC)

	data, err := encodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestDecodeEvent_NullEmail(t *testing.T) {
	ev := models.NewAuditEvent("", models.ActionSignup, models.OutcomeError, "")
	ev.CreatedAt = time.Unix(0, 0).UTC()

	data, err := encodeEvent(ev)
	require.NoError(t, err)

	got, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Nil(t, got.ActorEmail)
}

func TestDecodeEvent_Garbage(t *testing.T) {
	_, err := DecodeEvent([]byte{0xff, 0x00})
	require.Error(t, err)
}

func TestNewNATSBroker_Unreachable(t *testing.T) {
	_, err := NewNATSBroker("nats://127.0.0.1:1", "", logging.Discard())
	require.Error(t, err)
}
