// Package service hosts the reconciliation driver that turns feed
// snapshots into client alerts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"abc-inventory-monitor/internal/alert"
	"abc-inventory-monitor/internal/feed"
	"abc-inventory-monitor/internal/gate"
	"abc-inventory-monitor/internal/mirror"
	"abc-inventory-monitor/internal/model"
	"abc-inventory-monitor/internal/repository"
)

// State is the monitor's position in the reconciliation cycle.
type State string

const (
	StateIdle              State = "IDLE"
	StateDownloading       State = "DOWNLOADING"
	StateValidating        State = "VALIDATING"
	StateUpdatingStore     State = "UPDATING_STORE"
	StateEvaluatingClients State = "EVALUATING_CLIENTS"
	StateDispatching       State = "DISPATCHING"
)

// Status is a point-in-time view of the monitor for the admin API.
type Status struct {
	State         State     `json:"state"`
	CycleCount    int       `json:"cycle_count"`
	LastAttempt   time.Time `json:"last_attempt,omitempty"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	SnapshotRows  int       `json:"snapshot_rows"`
	PendingSMS    int       `json:"pending_sms"`
	CheckInterval string    `json:"check_interval"`
}

// Monitor drives the download, validate, update, evaluate, dispatch cycle.
// Every collaborator is injected; the monitor owns no global state. A
// failed cycle degrades to a no-op and the loop carries on.
type Monitor struct {
	downloader *feed.Downloader
	validator  *feed.Validator
	snapshots  *feed.SnapshotStore
	diffLog    *feed.DiffLog
	store      repository.Store
	tracker    *alert.Tracker
	evaluator  *alert.Evaluator
	dispatcher *alert.Dispatcher
	gate       *gate.Gate
	syncer     *mirror.Syncer

	checkInterval time.Duration
	cycleSleep    time.Duration

	mu             sync.Mutex
	state          State
	cycleCount     int
	lastAttempt    time.Time
	lastSuccess    time.Time
	resetRequested bool
	forceCycle     bool

	cycleRequests chan struct{}
}

// Deps bundles the monitor's collaborators. DiffLog and Syncer are
// optional; the rest are required.
type Deps struct {
	Downloader *feed.Downloader
	Validator  *feed.Validator
	Snapshots  *feed.SnapshotStore
	DiffLog    *feed.DiffLog
	Store      repository.Store
	Tracker    *alert.Tracker
	Evaluator  *alert.Evaluator
	Dispatcher *alert.Dispatcher
	Gate       *gate.Gate
	Syncer     *mirror.Syncer
}

// NewMonitor creates a monitor that attempts a cycle every checkInterval
// and sleeps cycleSleep between loop iterations.
func NewMonitor(deps Deps, checkInterval, cycleSleep time.Duration) *Monitor {
	return &Monitor{
		downloader:    deps.Downloader,
		validator:     deps.Validator,
		snapshots:     deps.Snapshots,
		diffLog:       deps.DiffLog,
		store:         deps.Store,
		tracker:       deps.Tracker,
		evaluator:     deps.Evaluator,
		dispatcher:    deps.Dispatcher,
		gate:          deps.Gate,
		syncer:        deps.Syncer,
		checkInterval: checkInterval,
		cycleSleep:    cycleSleep,
		state:         StateIdle,
		cycleRequests: make(chan struct{}, 1),
	}
}

// Run loops until the context is cancelled. Each iteration runs a cycle if
// the check interval has elapsed or a manual cycle was requested, then
// flushes any SMS queues whose send windows have opened.
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("[Monitor] Starting loop (check interval %s)", m.checkInterval)

	for {
		m.mu.Lock()
		reset := m.resetRequested
		m.resetRequested = false
		m.mu.Unlock()
		if reset {
			m.applyReset()
		}

		now := time.Now()
		if m.due(now) {
			if err := m.Cycle(ctx); err != nil {
				log.Printf("[Monitor] Cycle failed: %v", err)
			}
		}
		m.gate.FlushAll(ctx, time.Now())

		select {
		case <-ctx.Done():
			log.Printf("[Monitor] Stopping loop: %v", ctx.Err())
			return
		case <-m.cycleRequests:
		case <-time.After(m.cycleSleep):
		}
	}
}

// Cycle runs one full reconciliation pass. The attempt time is stamped up
// front, so a rejected or failed download still counts against the check
// interval and the monitor does not hammer the feed.
func (m *Monitor) Cycle(ctx context.Context) error {
	m.mu.Lock()
	m.lastAttempt = time.Now()
	m.mu.Unlock()
	defer m.setState(StateIdle)

	m.setState(StateDownloading)
	path, err := m.downloader.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer os.Remove(path)

	m.setState(StateValidating)
	now := time.Now()
	snapshot, err := feed.ParseFile(path, now)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}
	if err := m.validator.Validate(snapshot); err != nil {
		if errors.Is(err, feed.ErrEmptySnapshot) || errors.Is(err, feed.ErrSnapshotRejected) {
			log.Printf("[Monitor] Snapshot discarded: %v", err)
			return nil
		}
		return err
	}

	m.snapshots.Replace(snapshot)
	current, previous := m.snapshots.Pair()
	if m.diffLog != nil {
		m.diffLog.Append(current, previous, now)
	}

	m.setState(StateUpdatingStore)
	newCodes, err := m.updateStore(ctx, current, now)
	if err != nil {
		return err
	}

	if m.syncer != nil {
		m.syncer.Drain(ctx)
	}

	m.setState(StateEvaluatingClients)
	ids, err := m.store.ClientIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	for _, id := range ids {
		client, err := m.store.GetClient(ctx, id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				log.Printf("[Monitor] Failed to load client %s: %v", id, err)
			}
			continue
		}

		restocks := m.evaluator.Evaluate(ctx, client, current, previous, now)
		newItems := m.evaluator.EvaluateNewItems(client, current, newCodes)

		m.setState(StateDispatching)
		m.dispatcher.Dispatch(ctx, client, restocks, false, now)
		m.dispatcher.Dispatch(ctx, client, newItems, true, now)
		m.setState(StateEvaluatingClients)
	}

	m.mu.Lock()
	m.cycleCount++
	m.lastSuccess = time.Now()
	m.mu.Unlock()

	log.Printf("[Monitor] Cycle complete: %d rows, %d new codes, %d clients",
		current.Len(), len(newCodes), len(ids))
	return nil
}

// updateStore refreshes persisted item state from the snapshot and returns
// the codes never seen before this cycle.
func (m *Monitor) updateStore(ctx context.Context, current *model.Snapshot, now time.Time) ([]string, error) {
	var newCodes []string
	for _, row := range current.Rows() {
		isNew, err := m.tracker.RecordAvailability(ctx, row, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record availability for %s: %w", row.Code, err)
		}
		if isNew {
			newCodes = append(newCodes, row.Code)
		}
	}
	return newCodes, nil
}

// RequestCycle asks the loop to attempt a cycle on its next wakeup,
// regardless of the check interval.
func (m *Monitor) RequestCycle() {
	m.mu.Lock()
	m.forceCycle = true
	m.mu.Unlock()
	select {
	case m.cycleRequests <- struct{}{}:
	default:
	}
}

// RequestReset asks the loop to clear validator and snapshot state before
// its next cycle. Persisted client and item state is untouched.
func (m *Monitor) RequestReset() {
	m.mu.Lock()
	m.resetRequested = true
	m.mu.Unlock()
	m.RequestCycle()
}

// Status reports the monitor's current state for the admin API.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:         m.state,
		CycleCount:    m.cycleCount,
		LastAttempt:   m.lastAttempt,
		LastSuccess:   m.lastSuccess,
		SnapshotRows:  m.snapshots.Current().Len(),
		PendingSMS:    m.gate.PendingTotal(),
		CheckInterval: m.checkInterval.String(),
	}
}

func (m *Monitor) applyReset() {
	log.Printf("[Monitor] Resetting validator and snapshot state")
	m.validator.Reset()
	m.snapshots.Reset()
	m.mu.Lock()
	m.lastAttempt = time.Time{}
	m.mu.Unlock()
}

func (m *Monitor) due(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceCycle {
		m.forceCycle = false
		return true
	}
	return m.lastAttempt.IsZero() || now.Sub(m.lastAttempt) >= m.checkInterval
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
