package repository

import (
	"context"
	"sync"
	"time"

	"abc-inventory-monitor/internal/model"
)

// MemoryStore is an in-memory implementation of Store. Use it for tests
// and development runs that should not touch a real database.
type MemoryStore struct {
	mu      sync.RWMutex
	clients map[string]*model.Client
	items   map[string]*model.TrackedItem
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients: make(map[string]*model.Client),
		items:   make(map[string]*model.TrackedItem),
	}
}

// ClientIDs returns every known client id.
func (s *MemoryStore) ClientIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids, nil
}

// GetClient returns a copy of the stored client.
func (s *MemoryStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *c
	copied.PhoneNumbers = append([]string(nil), c.PhoneNumbers...)
	copied.Tracked = append([]model.Association(nil), c.Tracked...)
	return &copied, nil
}

// AddClient creates a client with default preferences. No-op if it exists.
func (s *MemoryStore) AddClient(ctx context.Context, id, email string, phoneNumbers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; ok {
		return nil
	}
	now := time.Now().UTC()
	s.clients[id] = &model.Client{
		ID:                      id,
		Email:                   email,
		PhoneNumbers:            append([]string(nil), phoneNumbers...),
		EmailAlerts:             true,
		PhoneAlerts:             true,
		UpdateOnNewData:         true,
		EnableNewDataSMSAlert:   true,
		EnableNewDataEmailAlert: true,
		ThresholdInventory:      1,
		LastUpdated:             now,
		CreatedAt:               now,
	}
	return nil
}

// SaveClient replaces the stored client's preference fields.
func (s *MemoryStore) SaveClient(ctx context.Context, c *model.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.clients[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.LastUpdated = time.Now().UTC()
	copied := *c
	copied.PhoneNumbers = append([]string(nil), c.PhoneNumbers...)
	copied.Tracked = append([]model.Association(nil), stored.Tracked...)
	s.clients[c.ID] = &copied
	return nil
}

// DeleteClient removes a client.
func (s *MemoryStore) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
	return nil
}

// SetPhoneNumbers replaces the client's phone numbers.
func (s *MemoryStore) SetPhoneNumbers(ctx context.Context, id string, numbers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.PhoneNumbers = append([]string(nil), numbers...)
	return nil
}

// IncrementUpdatesSent bumps the client's sent counter by n.
func (s *MemoryStore) IncrementUpdatesSent(ctx context.Context, id string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.UpdatesSent += n
	return nil
}

// AddTrackAssociation creates or updates a client-item association.
func (s *MemoryStore) AddTrackAssociation(ctx context.Context, clientID, code string, tracking bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return ErrNotFound
	}
	for i, a := range c.Tracked {
		if a.Code == code {
			c.Tracked[i].Tracking = tracking
			return nil
		}
	}
	c.Tracked = append(c.Tracked, model.Association{ClientID: clientID, Code: code, Tracking: tracking})
	return nil
}

// DeleteTrackAssociation removes a client-item association.
func (s *MemoryStore) DeleteTrackAssociation(ctx context.Context, clientID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return ErrNotFound
	}
	for i, a := range c.Tracked {
		if a.Code == code {
			c.Tracked = append(c.Tracked[:i], c.Tracked[i+1:]...)
			return nil
		}
	}
	return nil
}

// GetItem returns a copy of the persisted item state.
func (s *MemoryStore) GetItem(ctx context.Context, code string) (*model.TrackedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[code]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *item
	if item.OutOfStockSince != nil {
		t := *item.OutOfStockSince
		copied.OutOfStockSince = &t
	}
	return &copied, nil
}

// UpsertItem creates or refreshes an item's feed metadata.
func (s *MemoryStore) UpsertItem(ctx context.Context, row model.InventoryRow) (*model.TrackedItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[row.Code]
	if !ok {
		item = &model.TrackedItem{Code: row.Code, CreatedAt: time.Now().UTC()}
		s.items[row.Code] = item
	}
	item.BrandName = row.BrandName
	item.TotalAvailable = row.TotalAvailable
	item.Size = row.Size
	item.CasesPerPallet = row.CasesPerPallet
	item.Supplier = row.Supplier
	item.SupplierAllotment = row.SupplierAllotment
	item.BrokerName = row.BrokerName

	copied := *item
	if item.OutOfStockSince != nil {
		t := *item.OutOfStockSince
		copied.OutOfStockSince = &t
	}
	return &copied, !ok, nil
}

// SetAvailability overwrites the stored availability for a code.
func (s *MemoryStore) SetAvailability(ctx context.Context, code string, available int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[code]
	if !ok {
		return ErrNotFound
	}
	item.TotalAvailable = available
	return nil
}

// SetOutOfStockSince sets or clears the out-of-stock timestamp for a code.
func (s *MemoryStore) SetOutOfStockSince(ctx context.Context, code string, since *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[code]
	if !ok {
		return ErrNotFound
	}
	if since == nil {
		item.OutOfStockSince = nil
	} else {
		t := *since
		item.OutOfStockSince = &t
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
