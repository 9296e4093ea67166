package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"gatekeeper/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	// Must not panic or block.
	n.PublishPassEvent(context.Background(), "pass.applied", &models.GatePass{ID: "p1"})
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), nil))
}

func TestNotifier_PublishFansOutToParties(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	sub := rdb.PSubscribe(context.Background(), "passes:*")
	defer func() { _ = sub.Close() }()
	// Wait for the subscription before publishing.
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)
	ch := sub.Channel()

	tok := "SECRET0000"
	pass := &models.GatePass{
		ID:        "pass-1",
		StudentID: 3,
		MentorID:  9,
		Status:    models.PassStatusApproved,
		Reason:    "clinic",
		Token:     &tok,
	}
	n.PublishPassEvent(context.Background(), "pass.decided", pass)

	channels := map[string]string{}
	timeout := time.After(2 * time.Second)
	for len(channels) < 3 {
		select {
		case msg := <-ch:
			channels[msg.Channel] = msg.Payload
		case <-timeout:
			t.Fatalf("timed out, got channels %v", channels)
		}
	}

	assert.Contains(t, channels, "passes:user:3")
	assert.Contains(t, channels, "passes:user:9")
	assert.Contains(t, channels, "passes:gate")

	for channel, payload := range channels {
		var event PassEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &event), "channel %s", channel)
		assert.Equal(t, "pass.decided", event.Event)
		assert.Equal(t, "pass-1", event.PassID)
		// The bearer credential must never travel through notifications.
		assert.False(t, strings.Contains(payload, tok), "token leaked on %s", channel)
	}
}

func TestHub_WiringForwardsToUserAndGate(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)

	var mu sync.Mutex
	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		mu.Lock()
		got = append(got, channel)
		mu.Unlock()
	}))

	n.PublishPassEvent(context.Background(), "pass.applied", &models.GatePass{
		ID:        "pass-2",
		StudentID: 4,
		MentorID:  5,
		Status:    models.PassStatusPending,
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	before := len(got)
	mu.Unlock()

	n.PublishPassEvent(context.Background(), "pass.applied", &models.GatePass{ID: "pass-3"})
	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > before
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestHub_RegisterLimitsAndCounts(t *testing.T) {
	h := NewHub()

	clients := make([]*Client, 0, maxConnsPerUser)
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := h.Register(1, nil, false)
		require.NoError(t, err)
		clients = append(clients, c)
	}
	assert.Equal(t, maxConnsPerUser, h.ConnectionCount())

	_, err := h.Register(1, nil, false)
	assert.Error(t, err, "per-user connection limit must apply")

	for _, c := range clients {
		h.Unregister(c)
	}
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestHub_BroadcastReachesOnlyTargetUser(t *testing.T) {
	h := NewHub()

	target, err := h.Register(1, nil, false)
	require.NoError(t, err)
	other, err := h.Register(2, nil, false)
	require.NoError(t, err)
	admin, err := h.Register(3, nil, true)
	require.NoError(t, err)

	h.Broadcast(1, "user event")
	h.BroadcastGate("gate event")

	assert.Equal(t, "user event", string(<-target.Send))
	assert.Equal(t, "gate event", string(<-admin.Send))

	select {
	case msg := <-other.Send:
		t.Fatalf("user 2 received unexpected message %q", msg)
	default:
	}
}
