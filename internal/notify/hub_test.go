package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDispatch(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	msg := NewMessage(1, "hello", "/posts/1", "NEW_COMMENT")
	hub.Dispatch(msg)

	select {
	case got := <-ch:
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "hello", got.Content)
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestHubDispatch_OnlyRecipient(t *testing.T) {
	hub := NewHub()

	mine, cancelMine := hub.Subscribe(1)
	defer cancelMine()
	theirs, cancelTheirs := hub.Subscribe(2)
	defer cancelTheirs()

	hub.Dispatch(NewMessage(1, "for user one", "", "TEST"))

	select {
	case <-mine:
	case <-time.After(time.Second):
		t.Fatal("recipient session missed the message")
	}

	select {
	case <-theirs:
		t.Fatal("message leaked to another user")
	default:
	}
}

func TestHubDispatch_MultipleSessions(t *testing.T) {
	hub := NewHub()

	first, cancelFirst := hub.Subscribe(7)
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe(7)
	defer cancelSecond()

	require.Equal(t, 2, hub.SessionCount(7))

	hub.Dispatch(NewMessage(7, "fan out", "", "TEST"))

	for _, ch := range []<-chan Message{first, second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("a session missed the fan-out")
		}
	}
}

func TestHubDispatch_SlowConsumerDropped(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	// Overflow the session buffer without reading; Dispatch must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < sessionBuffer*2; i++ {
			hub.Dispatch(NewMessage(1, "flood", "", "TEST"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on a slow consumer")
	}

	// The buffered prefix is still readable.
	assert.Len(t, ch, sessionBuffer)
}

func TestHubCancel(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(3)
	cancel()
	assert.Zero(t, hub.SessionCount(3))

	// Cancelling twice must not panic or double-close.
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Dispatch to a user with no sessions is a no-op.
	hub.Dispatch(NewMessage(3, "into the void", "", "TEST"))
}
