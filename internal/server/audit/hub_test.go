package audit

import (
	"testing"

	"github.com/SakshiM22/secure-vault/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestHub_CloseOneSubscriber(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Subscribers())

	a.Close()
	a.Close()
	assert.Equal(t, 1, h.Subscribers())

	_, open := <-a.C
	assert.False(t, open, "closed subscription channel must be closed")

	h.Publish(models.AuditEvent{ID: 1})
	ev := <-b.C
	assert.Equal(t, int64(1), ev.ID)
	b.Close()
}

func TestHub_CloseEndsAll(t *testing.T) {
	h := NewHub(0)
	a := h.Subscribe()
	h.Close()

	_, open := <-a.C
	assert.False(t, open)
	a.Close()

	late := h.Subscribe()
	_, open = <-late.C
	assert.False(t, open)
	assert.Zero(t, h.Subscribers())

	h.Publish(models.AuditEvent{ID: 2})
}
