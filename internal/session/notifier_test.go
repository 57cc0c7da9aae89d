package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestNotificationExpires(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	n := NewNotifier(DefaultNotificationTTL).WithClock(clock.now)

	n.Success("Escrow created successfully")
	clock.advance(5 * time.Second)
	note, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, "Escrow created successfully", note.Message)

	clock.advance(time.Second)
	_, ok = n.Current()
	assert.False(t, ok)
}

func TestLatestNotificationReplacesPrevious(t *testing.T) {
	n := NewNotifier(time.Minute)
	first := n.Error("Failed to connect wallet")
	second := n.Success("Funds released successfully")

	assert.Greater(t, second.ID, first.ID)
	note, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, second, note)
}

func TestDismiss(t *testing.T) {
	n := NewNotifier(time.Minute)
	first := n.Success("a")
	second := n.Success("b")

	assert.False(t, n.Dismiss(first.ID), "stale id must not clear the newer notification")
	_, ok := n.Current()
	assert.True(t, ok)

	assert.True(t, n.Dismiss(second.ID))
	_, ok = n.Current()
	assert.False(t, ok)
	assert.False(t, n.Dismiss(0))

	n.Error("c")
	assert.True(t, n.Dismiss(0))
}

func TestSubscribe(t *testing.T) {
	n := NewNotifier(time.Minute)
	ch, cancel := n.Subscribe(1)

	n.Success("one")
	n.Success("dropped")

	got := <-ch
	assert.Equal(t, "one", got.Message)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	n.Success("after cancel")
}
