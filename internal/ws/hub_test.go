package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/orchestrator"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.events)
	assert.NotNil(t, hub.join)
	assert.NotNil(t, hub.leave)
	assert.Equal(t, 0, hub.ConnectedClients())
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := startHub(t)

	client := &Client{hub: hub, send: make(chan []byte, 1)}

	hub.join <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 5*time.Millisecond)

	hub.leave <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open, "send channel is closed on unregister")
}

func TestHub_Broadcast(t *testing.T) {
	hub := startHub(t)

	c1 := &Client{hub: hub, send: make(chan []byte, 10)}
	c2 := &Client{hub: hub, send: make(chan []byte, 10)}
	hub.join <- c1
	hub.join <- c2
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(EventStatus, map[string]string{"status": "recognized"})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			var event Event
			require.NoError(t, json.Unmarshal(msg, &event))
			assert.Equal(t, EventStatus, event.Type)
			assert.Equal(t, map[string]interface{}{"status": "recognized"}, event.Data)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := &Client{hub: hub, send: make(chan []byte)}
	hub.join <- slow
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(EventStatus, "x")

	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.join <- client

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.ConnectedClients())

	// joining or leaving a stopped hub must not block
	assert.False(t, hub.joinHub(&Client{hub: hub, send: make(chan []byte, 1)}))
	hub.leaveHub(client)
}

func TestHub_ReplaysLastStatusToLateJoiners(t *testing.T) {
	hub := startHub(t)

	first := &Client{hub: hub, send: make(chan []byte, 10)}
	hub.join <- first
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 5*time.Millisecond)

	hub.StatusUpdated(orchestrator.Update{Status: domain.StatusCheckingLiveness})
	hub.IdentityDeleted("E001")
	for i := 0; i < 2; i++ {
		select {
		case <-first.send:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}

	late := &Client{hub: hub, send: make(chan []byte, 10)}
	require.True(t, hub.joinHub(late))

	select {
	case msg := <-late.send:
		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, EventStatus, event.Type)
	case <-time.After(time.Second):
		t.Fatal("late joiner did not get the last status")
	}
	assert.Empty(t, late.send, "only the status event is replayed")
}

func TestHub_Notifications(t *testing.T) {
	hub := startHub(t)

	c := &Client{hub: hub, send: make(chan []byte, 10)}
	hub.join <- c
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 5*time.Millisecond)

	hub.StatusUpdated(orchestrator.Update{Status: domain.StatusRecognized, IdentityID: "E001"})
	hub.IdentityEnrolled(&domain.EnrolledIdentity{ID: "E002", DisplayName: "Bruno"})
	hub.IdentityDeleted("E003")

	want := []struct {
		eventType EventType
		id        string
	}{
		{EventStatus, "E001"},
		{EventIdentityEnrolled, "E002"},
		{EventIdentityDeleted, "E003"},
	}

	for _, w := range want {
		select {
		case msg := <-c.send:
			var event struct {
				Type EventType `json:"type"`
				Data struct {
					ID         string `json:"id"`
					IdentityID string `json:"identity_id"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(msg, &event))
			assert.Equal(t, w.eventType, event.Type)
			assert.Equal(t, w.id, event.Data.ID+event.Data.IdentityID)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}
