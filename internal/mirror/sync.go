package mirror

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"abc-inventory-monitor/internal/model"
	"abc-inventory-monitor/internal/repository"
)

// Remote is the document-store surface the syncer needs. *Mirror is the
// production implementation.
type Remote interface {
	PullAll(ctx context.Context) (map[string]model.PrefDoc, error)
	Push(ctx context.Context, clientID string, doc model.PrefDoc) error
	Watch(ctx context.Context) (<-chan Change, error)
}

// Syncer reconciles preference documents with the relational store. Remote
// documents are the source of truth for client preferences; the relational
// store is the source of truth for item availability. Watch events are
// buffered and applied only when Drain is called, so a remote edit can
// never change a client mid-evaluation.
type Syncer struct {
	mirror Remote
	store  repository.Store

	mu      sync.Mutex
	pending []Change
}

// NewSyncer creates a syncer over the given remote and store.
func NewSyncer(m Remote, store repository.Store) *Syncer {
	return &Syncer{mirror: m, store: store}
}

// SyncAll runs a full two-way reconciliation: every remote document is
// normalized and merged into the store, and clients that exist only
// locally are pushed up with default documents.
func (s *Syncer) SyncAll(ctx context.Context) error {
	docs, err := s.mirror.PullAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to pull preference documents: %w", err)
	}

	for id, doc := range docs {
		if err := s.Apply(ctx, id, doc); err != nil {
			log.Printf("[Sync] Failed to apply document for %s: %v", id, err)
		}
	}

	ids, err := s.store.ClientIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	for _, id := range ids {
		if _, ok := docs[id]; ok {
			continue
		}
		if err := s.PushClient(ctx, id); err != nil {
			log.Printf("[Sync] Failed to push document for local-only client %s: %v", id, err)
		}
	}
	return nil
}

// Apply merges one remote document into the store. The document is
// normalized first; if normalization changed it, the patched document is
// pushed back. A document older than the client's LastUpdated stamp is
// skipped (the local write wins).
func (s *Syncer) Apply(ctx context.Context, clientID string, doc model.PrefDoc) error {
	if doc.Normalize() {
		if err := s.mirror.Push(ctx, clientID, doc); err != nil {
			log.Printf("[Sync] Failed to push normalized document for %s: %v", clientID, err)
		}
	}

	notif := doc.Preferences.Notifications
	email := notif.Email.Email
	phones := doc.PhoneNumbers()

	client, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		if err := s.store.AddClient(ctx, clientID, email, phones); err != nil {
			return fmt.Errorf("failed to add client %s: %w", clientID, err)
		}
		client, err = s.store.GetClient(ctx, clientID)
	}
	if err != nil {
		return err
	}

	if !doc.UpdatedAt.IsZero() && doc.UpdatedAt.Before(client.LastUpdated) {
		return nil
	}

	client.Email = email
	client.EmailAlerts = notif.Email.UpdatesEnabled
	client.PhoneAlerts = notif.SMS.UpdatesEnabled
	client.UpdateOnNewData = doc.Preferences.UpdateOnNewData
	client.ThresholdInventory = doc.Inventory.InventoryChange
	client.MinHoursSinceOutOfStock = doc.Inventory.MinHoursSinceOutOfStock
	client.HasPaid = doc.Accounting.HasPaid
	client.NextBillingAmount = doc.Accounting.NextBillingAmount
	if len(notif.AlertTimeRange) == 2 {
		client.AlertRangeEnabled = true
		client.AlertTimeRangeStart = notif.AlertTimeRange[0]
		client.AlertTimeRangeEnd = notif.AlertTimeRange[1]
	} else {
		client.AlertRangeEnabled = false
	}
	client.AlertTimeZone = notif.AlertTimeZone.Value

	if err := s.store.SaveClient(ctx, client); err != nil {
		return fmt.Errorf("failed to save client %s: %w", clientID, err)
	}
	if err := s.store.SetPhoneNumbers(ctx, clientID, phones); err != nil {
		return fmt.Errorf("failed to set phone numbers for %s: %w", clientID, err)
	}

	for code, pref := range doc.Inventory.Items {
		tracking := pref.Action == model.ActionTracking
		if err := s.store.AddTrackAssociation(ctx, clientID, code, tracking); err != nil {
			log.Printf("[Sync] Failed to set association %s/%s: %v", clientID, code, err)
		}
	}
	for _, assoc := range client.Tracked {
		if _, ok := doc.Inventory.Items[assoc.Code]; ok {
			continue
		}
		if err := s.store.DeleteTrackAssociation(ctx, clientID, assoc.Code); err != nil {
			log.Printf("[Sync] Failed to remove association %s/%s: %v", clientID, assoc.Code, err)
		}
	}
	return nil
}

// PushClient builds a document from the client's stored state and pushes
// it up. Item entries carry the item's last known availability.
func (s *Syncer) PushClient(ctx context.Context, clientID string) error {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return err
	}

	doc := s.DocFromClient(ctx, client)
	if err := s.mirror.Push(ctx, clientID, doc); err != nil {
		return err
	}
	return nil
}

// PushAll pushes a document for every known client.
func (s *Syncer) PushAll(ctx context.Context) error {
	ids, err := s.store.ClientIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	for _, id := range ids {
		if err := s.PushClient(ctx, id); err != nil {
			log.Printf("[Sync] Failed to push document for %s: %v", id, err)
		}
	}
	return nil
}

// DocFromClient converts stored client state into a preference document.
func (s *Syncer) DocFromClient(ctx context.Context, client *model.Client) model.PrefDoc {
	doc := model.NewPrefDoc()

	doc.Inventory.InventoryChange = client.ThresholdInventory
	doc.Inventory.MinHoursSinceOutOfStock = client.MinHoursSinceOutOfStock
	doc.Preferences.UpdateOnNewData = client.UpdateOnNewData
	doc.Accounting = model.Accounting{
		HasPaid:           client.HasPaid,
		NextBillingAmount: client.NextBillingAmount,
	}

	notif := &doc.Preferences.Notifications
	notif.Email = model.EmailPref{Email: client.Email, UpdatesEnabled: client.EmailAlerts}
	notif.SMS.UpdatesEnabled = client.PhoneAlerts
	for i, number := range client.PhoneNumbers {
		notif.SMS.PhoneNumbers[fmt.Sprintf("%d", i)] = number
	}
	if client.AlertRangeEnabled {
		notif.AlertTimeRange = []int{client.AlertTimeRangeStart, client.AlertTimeRangeEnd}
	}
	if client.AlertTimeZone != "" && client.AlertTimeZone != model.DefaultAlertTimeZone.Value {
		notif.AlertTimeZone = model.TimeZonePref{Value: client.AlertTimeZone}
	}

	for _, assoc := range client.Tracked {
		pref := model.ItemPref{Action: model.ActionNotTracking}
		if assoc.Tracking {
			pref.Action = model.ActionTracking
		}
		if item, err := s.store.GetItem(ctx, assoc.Code); err == nil {
			pref.Name = item.BrandName
			pref.Inventory = item.TotalAvailable
		}
		doc.Inventory.Items[assoc.Code] = pref
	}
	return doc
}

// StartWatch opens the change stream and buffers events until Drain. If
// the stream cannot be opened (standalone deployments have no oplog) the
// syncer logs and returns without error; SyncAll still runs per cycle.
func (s *Syncer) StartWatch(ctx context.Context) {
	changes, err := s.mirror.Watch(ctx)
	if err != nil {
		log.Printf("[Sync] Change stream unavailable, relying on per-cycle pulls: %v", err)
		return
	}

	go func() {
		for change := range changes {
			s.mu.Lock()
			s.pending = append(s.pending, change)
			s.mu.Unlock()
		}
	}()
	log.Printf("[Sync] Watching preference documents for changes")
}

// Drain applies every buffered watch event. The monitor calls this at the
// top of the evaluation phase so changes land between cycles, never during
// one.
func (s *Syncer) Drain(ctx context.Context) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	log.Printf("[Sync] Applying %d buffered document changes", len(pending))

	for _, change := range pending {
		switch change.Kind {
		case ChangeRemoved:
			if err := s.store.DeleteClient(ctx, change.ClientID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				log.Printf("[Sync] Failed to delete client %s: %v", change.ClientID, err)
			}
		default:
			if err := s.Apply(ctx, change.ClientID, change.Doc); err != nil {
				log.Printf("[Sync] Failed to apply change for %s: %v", change.ClientID, err)
			}
		}
	}
}
