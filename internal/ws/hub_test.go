package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/notify"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
	})
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub(slog.Default())

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := startHub(t)

	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}

	require.True(t, hub.join(client))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, hub.ConnectedClients())

	hub.leave(client)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.ConnectedClients())
}

func TestHub_Publish(t *testing.T) {
	hub := startHub(t)

	client := &Client{
		hub:  hub,
		send: make(chan []byte, 10),
	}

	require.True(t, hub.join(client))
	time.Sleep(50 * time.Millisecond)

	event := notify.Event{
		Type:     notify.EventVerification,
		Status:   domain.StatusMatched,
		Identity: &domain.IdentitySummary{AccountID: "A1", Name: "Ana"},
	}
	require.NoError(t, hub.Publish(context.Background(), event))

	select {
	case msg := <-client.send:
		var got notify.Event
		err := json.Unmarshal(msg, &got)
		assert.NoError(t, err)
		assert.Equal(t, notify.EventVerification, got.Type)
		assert.Equal(t, domain.StatusMatched, got.Status)
		require.NotNil(t, got.Identity)
		assert.Equal(t, "A1", got.Identity.AccountID)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_StatusFilter(t *testing.T) {
	hub := startHub(t)

	spoofOnly := &Client{
		hub:      hub,
		statuses: parseStatusFilter("spoof_suspected"),
		send:     make(chan []byte, 10),
	}
	everything := &Client{
		hub:      hub,
		statuses: parseStatusFilter(""),
		send:     make(chan []byte, 10),
	}

	require.True(t, hub.join(spoofOnly))
	require.True(t, hub.join(everything))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), notify.Event{Type: notify.EventVerification, Status: domain.StatusMatched}))
	time.Sleep(50 * time.Millisecond)

	select {
	case <-everything.send:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("unfiltered client should receive message")
	}

	select {
	case <-spoofOnly.send:
		t.Fatal("filtered client should not receive matched events")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, hub.Publish(context.Background(), notify.EnrollmentEvent(domain.IdentitySummary{AccountID: "B2"}, time.Now())))

	select {
	case <-spoofOnly.send:
	case <-time.After(time.Second):
		t.Fatal("events without a status pass every filter")
	}
}

func TestParseStatusFilter(t *testing.T) {
	got := parseStatusFilter(" matched , spoof_suspected,,")
	assert.Equal(t, map[domain.VerifyStatus]bool{
		domain.StatusMatched:        true,
		domain.StatusSpoofSuspected: true,
	}, got)
	assert.Empty(t, parseStatusFilter(""))
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	require.True(t, hub.join(client))

	cancel()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	_, open := <-client.send
	assert.False(t, open, "client channel should be closed on shutdown")
	assert.False(t, hub.join(&Client{hub: hub, send: make(chan []byte)}))
}

func TestHub_PublishWhenFull(t *testing.T) {
	hub := NewHub(slog.Default())
	for i := 0; i < cap(hub.broadcast); i++ {
		require.NoError(t, hub.Publish(context.Background(), notify.Event{}))
	}
	assert.ErrorIs(t, hub.Publish(context.Background(), notify.Event{}), ErrHubBusy)
}
