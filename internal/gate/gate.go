// Package gate implements the send-window gate in front of the SMS
// transport. Messages for a destination are queued in FIFO order and only
// released while the destination's local time-of-day window is open; they
// are never dropped, no matter how long that takes.
package gate

import (
	"context"
	"log"
	"sync"
	"time"

	"abc-inventory-monitor/internal/notify"
	"abc-inventory-monitor/pkg/uid"
)

// Message is one queued SMS.
type Message struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	Body        string    `json:"body"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Window is a per-destination time-of-day send window. Minutes are counted
// from midnight in the destination's timezone. Ignore disables the window
// entirely (always open).
type Window struct {
	StartMinute int
	EndMinute   int
	Timezone    string
	Ignore      bool
}

// Gate queues messages per destination and flushes them only inside the
// destination's send window. Safe for concurrent use.
type Gate struct {
	mu       sync.Mutex
	sender   notify.SMSSender
	spool    Spool
	minDelay time.Duration
	windows  map[string]Window
	queues   map[string][]Message
}

// New creates a gate delivering through sender and persisting pending
// messages in spool. minDelay is the pause between consecutive sends to
// the same destination.
func New(sender notify.SMSSender, spool Spool, minDelay time.Duration) *Gate {
	if spool == nil {
		spool = NewMemorySpool()
	}
	return &Gate{
		sender:   sender,
		spool:    spool,
		minDelay: minDelay,
		windows:  make(map[string]Window),
		queues:   make(map[string][]Message),
	}
}

// Restore reloads pending messages from the spool, typically at startup.
func (g *Gate) Restore(ctx context.Context) error {
	queues, err := g.spool.Load(ctx)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for dest, msgs := range queues {
		g.queues[dest] = append(g.queues[dest], msgs...)
		total += len(msgs)
	}
	if total > 0 {
		log.Printf("[Gate] Restored %d pending messages from spool", total)
	}
	return nil
}

// SetWindow installs or replaces the send window for a destination.
func (g *Gate) SetWindow(destination string, w Window) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.windows[destination] = w
}

// Enqueue appends a message to the destination's queue and immediately
// attempts a flush.
func (g *Gate) Enqueue(ctx context.Context, destination, body string, now time.Time) error {
	msg := Message{
		ID:          uid.New(),
		Destination: destination,
		Body:        body,
		EnqueuedAt:  now,
	}

	g.mu.Lock()
	g.queues[destination] = append(g.queues[destination], msg)
	g.mu.Unlock()

	if err := g.spool.Append(ctx, msg); err != nil {
		log.Printf("[Gate] Failed to spool message for %s: %v", destination, err)
	}

	_, err := g.Flush(ctx, destination, now)
	return err
}

// Flush sends every queued message for the destination, in order, if the
// send window is open at now. Returns the number of messages sent. A
// transport failure leaves the failed message and everything behind it
// queued for the next flush.
func (g *Gate) Flush(ctx context.Context, destination string, now time.Time) (int, error) {
	g.mu.Lock()
	pending := len(g.queues[destination])
	open := g.windowOpenLocked(destination, now)
	g.mu.Unlock()

	if pending == 0 || !open {
		return 0, nil
	}

	sent := 0
	for {
		g.mu.Lock()
		queue := g.queues[destination]
		if len(queue) == 0 {
			g.mu.Unlock()
			break
		}
		msg := queue[0]
		g.mu.Unlock()

		if sent > 0 && g.minDelay > 0 {
			time.Sleep(g.minDelay)
		}

		if err := g.sender.SendSMS(ctx, msg.Destination, msg.Body); err != nil {
			log.Printf("[Gate] Send to %s failed, %d messages remain queued: %v",
				destination, pending-sent, err)
			return sent, err
		}

		g.mu.Lock()
		g.queues[destination] = g.queues[destination][1:]
		remaining := append([]Message(nil), g.queues[destination]...)
		g.mu.Unlock()

		if err := g.spool.Replace(ctx, destination, remaining); err != nil {
			log.Printf("[Gate] Failed to update spool for %s: %v", destination, err)
		}
		sent++
	}
	return sent, nil
}

// FlushAll attempts a flush for every destination with pending messages.
// The monitor calls this each cycle so messages enqueued outside a window
// eventually drain once the window opens.
func (g *Gate) FlushAll(ctx context.Context, now time.Time) int {
	g.mu.Lock()
	destinations := make([]string, 0, len(g.queues))
	for dest, queue := range g.queues {
		if len(queue) > 0 {
			destinations = append(destinations, dest)
		}
	}
	g.mu.Unlock()

	total := 0
	for _, dest := range destinations {
		n, _ := g.Flush(ctx, dest, now)
		total += n
	}
	return total
}

// Pending returns the number of queued messages for a destination.
func (g *Gate) Pending(destination string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queues[destination])
}

// PendingTotal returns the number of queued messages across destinations.
func (g *Gate) PendingTotal() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, q := range g.queues {
		total += len(q)
	}
	return total
}

// windowOpenLocked reports whether sends are permitted for the destination
// at now. Destinations without a window, or with Ignore set, are always
// open. An unparseable timezone fails open so a bad preference document
// cannot silence a client forever.
func (g *Gate) windowOpenLocked(destination string, now time.Time) bool {
	w, ok := g.windows[destination]
	if !ok || w.Ignore {
		return true
	}

	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		log.Printf("[Gate] Unknown timezone %q for %s, ignoring window", w.Timezone, destination)
		return true
	}

	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if w.StartMinute <= w.EndMinute {
		return minute >= w.StartMinute && minute <= w.EndMinute
	}
	// Window spans midnight.
	return minute >= w.StartMinute || minute <= w.EndMinute
}
