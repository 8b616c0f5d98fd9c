package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	bodies  []string
	failing bool
}

func (r *recordingSender) SendSMS(ctx context.Context, toNumber, body string) error {
	if r.failing {
		return errors.New("transport down")
	}
	r.bodies = append(r.bodies, body)
	return nil
}

func TestGate_NoWindowSendsImmediately(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)

	err := g.Enqueue(context.Background(), "+19195551234", "hello", time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, sender.bodies)
	assert.Equal(t, 0, g.Pending("+19195551234"))
}

func TestGate_ClosedWindowHoldsMessages(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)
	g.SetWindow("+19195551234", Window{StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "UTC"})

	at := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "early", at))

	assert.Empty(t, sender.bodies)
	assert.Equal(t, 1, g.Pending("+19195551234"))
}

func TestGate_OpenWindowFlushesInOrder(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)
	g.SetWindow("+19195551234", Window{StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "UTC"})

	night := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "first", night))
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "second", night))
	require.Empty(t, sender.bodies)

	morning := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	sent, err := g.Flush(context.Background(), "+19195551234", morning)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"first", "second"}, sender.bodies)
	assert.Equal(t, 0, g.Pending("+19195551234"))
}

func TestGate_WindowConvertsToDestinationTimezone(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)
	g.SetWindow("+19195551234", Window{StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "America/Los_Angeles"})

	// 17:00 UTC in winter is 09:00 in Los Angeles: the window just opened.
	at := time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "west coast morning", at))
	assert.Len(t, sender.bodies, 1)
}

func TestGate_WindowSpanningMidnight(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)
	// 22:00 through 02:00.
	g.SetWindow("+19195551234", Window{StartMinute: 22 * 60, EndMinute: 2 * 60, Timezone: "UTC"})

	inside := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "late", inside))
	assert.Len(t, sender.bodies, 1)

	outside := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "noon", outside))
	assert.Len(t, sender.bodies, 1)
	assert.Equal(t, 1, g.Pending("+19195551234"))
}

func TestGate_IgnoredWindowAlwaysSends(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)
	g.SetWindow("+19195551234", Window{StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "UTC", Ignore: true})

	at := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "any time", at))
	assert.Len(t, sender.bodies, 1)
}

func TestGate_UnknownTimezoneFailsOpen(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)
	g.SetWindow("+19195551234", Window{StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "Not/AZone"})

	at := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195551234", "still goes out", at))
	assert.Len(t, sender.bodies, 1)
}

func TestGate_TransportFailureKeepsQueue(t *testing.T) {
	sender := &recordingSender{failing: true}
	g := New(sender, nil, 0)

	err := g.Enqueue(context.Background(), "+19195551234", "held", time.Now())
	require.Error(t, err)
	assert.Equal(t, 1, g.Pending("+19195551234"))

	// Once the transport recovers the message drains.
	sender.failing = false
	sent, err := g.Flush(context.Background(), "+19195551234", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"held"}, sender.bodies)
}

func TestGate_FlushAllDrainsEveryDestination(t *testing.T) {
	sender := &recordingSender{}
	g := New(sender, nil, 0)
	g.SetWindow("+19195550001", Window{StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "UTC"})
	g.SetWindow("+19195550002", Window{StartMinute: 9 * 60, EndMinute: 17 * 60, Timezone: "UTC"})

	night := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	require.NoError(t, g.Enqueue(context.Background(), "+19195550001", "a", night))
	require.NoError(t, g.Enqueue(context.Background(), "+19195550002", "b", night))
	assert.Equal(t, 2, g.PendingTotal())

	morning := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	total := g.FlushAll(context.Background(), morning)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, g.PendingTotal())
}

func TestGate_RestoreReloadsSpool(t *testing.T) {
	spool := NewMemorySpool()
	ctx := context.Background()
	require.NoError(t, spool.Append(ctx, Message{ID: "1", Destination: "+19195551234", Body: "carried over"}))

	sender := &recordingSender{}
	g := New(sender, spool, 0)
	require.NoError(t, g.Restore(ctx))
	assert.Equal(t, 1, g.Pending("+19195551234"))

	sent, err := g.Flush(ctx, "+19195551234", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"carried over"}, sender.bodies)
}
