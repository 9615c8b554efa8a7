// Package memory provides an in-memory StorageManager. It backs service
// tests and the --dev server mode where no SurrealDB instance is available.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
)

// Manager implements interfaces.StorageManager over process memory.
// All stores share one mutex; operations copy records on the way in and out
// so callers never alias stored state.
type Manager struct {
	mu sync.RWMutex

	users        map[string]models.User
	portfolios   map[string]models.Portfolio
	positions    map[string]models.Position
	transactions map[string]models.Transaction
	assets       map[string]models.Asset
	pricePoints  []models.PricePoint
	latest       map[string]models.PricePoint
	watchlists   map[string]models.WatchlistEntry
	alerts       map[string]models.Alert
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager creates an empty in-memory manager.
func NewManager() *Manager {
	return &Manager{
		users:        make(map[string]models.User),
		portfolios:   make(map[string]models.Portfolio),
		positions:    make(map[string]models.Position),
		transactions: make(map[string]models.Transaction),
		assets:       make(map[string]models.Asset),
		latest:       make(map[string]models.PricePoint),
		watchlists:   make(map[string]models.WatchlistEntry),
		alerts:       make(map[string]models.Alert),
	}
}

func (m *Manager) UserStore() interfaces.UserStore               { return (*userStore)(m) }
func (m *Manager) PortfolioStore() interfaces.PortfolioStore     { return (*portfolioStore)(m) }
func (m *Manager) PositionStore() interfaces.PositionStore       { return (*positionStore)(m) }
func (m *Manager) TransactionStore() interfaces.TransactionStore { return (*transactionStore)(m) }
func (m *Manager) AssetStore() interfaces.AssetStore             { return (*assetStore)(m) }
func (m *Manager) PriceStore() interfaces.PriceStore             { return (*priceStore)(m) }
func (m *Manager) WatchlistStore() interfaces.WatchlistStore     { return (*watchlistStore)(m) }
func (m *Manager) AlertStore() interfaces.AlertStore             { return (*alertStore)(m) }

func (m *Manager) Close() error { return nil }

func positionKey(portfolioID, assetID string) string {
	return portfolioID + "_" + assetID
}

func watchlistKey(username, assetID string) string {
	return username + "_" + assetID
}

// --- users ---

type userStore Manager

func (s *userStore) Get(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, interfaces.ErrNotFound)
	}
	return &u, nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("user with email %q: %w", email, interfaces.ErrNotFound)
}

func (s *userStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = *user
	return nil
}

func (s *userStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
	return nil
}

func (s *userStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// --- portfolios ---

type portfolioStore Manager

func (s *portfolioStore) Get(_ context.Context, id string) (*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %q: %w", id, interfaces.ErrNotFound)
	}
	return &p, nil
}

func (s *portfolioStore) ListByUser(_ context.Context, username string) ([]*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Portfolio
	for _, p := range s.portfolios {
		if p.Username == username {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *portfolioStore) Save(_ context.Context, portfolio *models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios[portfolio.ID] = *portfolio
	return nil
}

func (s *portfolioStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.portfolios, id)
	return nil
}

// --- positions ---

type positionStore Manager

func (s *positionStore) Get(_ context.Context, portfolioID, assetID string) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionKey(portfolioID, assetID)]
	if !ok {
		return nil, fmt.Errorf("position %s/%s: %w", portfolioID, assetID, interfaces.ErrNotFound)
	}
	return &p, nil
}

func (s *positionStore) Save(_ context.Context, position *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[positionKey(position.PortfolioID, position.AssetID)] = *position
	return nil
}

func (s *positionStore) ListByPortfolio(_ context.Context, portfolioID string) ([]*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Position
	for _, p := range s.positions {
		if p.PortfolioID == portfolioID {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

func (s *positionStore) DeleteByPortfolio(_ context.Context, portfolioID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, p := range s.positions {
		if p.PortfolioID == portfolioID {
			delete(s.positions, key)
			n++
		}
	}
	return n, nil
}

// --- transactions ---

type transactionStore Manager

func (s *transactionStore) Get(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %q: %w", id, interfaces.ErrNotFound)
	}
	return &tx, nil
}

func (s *transactionStore) Save(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = *tx
	return nil
}

func (s *transactionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transactions, id)
	return nil
}

func (s *transactionStore) ListByPortfolio(_ context.Context, portfolioID string, limit int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, tx := range s.transactions {
		if tx.PortfolioID == portfolioID {
			cp := tx
			out = append(out, &cp)
		}
	}
	return sortAndLimit(out, limit), nil
}

func (s *transactionStore) ListByUser(_ context.Context, username string, limit int) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, tx := range s.transactions {
		if tx.Username == username {
			cp := tx
			out = append(out, &cp)
		}
	}
	return sortAndLimit(out, limit), nil
}

func (s *transactionStore) DeleteByPortfolio(_ context.Context, portfolioID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, tx := range s.transactions {
		if tx.PortfolioID == portfolioID {
			delete(s.transactions, id)
			n++
		}
	}
	return n, nil
}

func sortAndLimit(txs []*models.Transaction, limit int) []*models.Transaction {
	sort.Slice(txs, func(i, j int) bool { return txs[i].Timestamp.After(txs[j].Timestamp) })
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs
}

// --- assets ---

type assetStore Manager

func (s *assetStore) Get(_ context.Context, id string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", id, interfaces.ErrNotFound)
	}
	return &a, nil
}

func (s *assetStore) GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	return s.Get(ctx, models.AssetID(symbol))
}

func (s *assetStore) Save(_ context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = *asset
	return nil
}

func (s *assetStore) List(_ context.Context, activeOnly bool) ([]*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Asset
	for _, a := range s.assets {
		if activeOnly && !a.Active {
			continue
		}
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (s *assetStore) Search(_ context.Context, term string) ([]*models.Asset, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Asset
	for _, a := range s.assets {
		if strings.Contains(strings.ToLower(a.Symbol), term) || strings.Contains(strings.ToLower(a.Name), term) {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// --- prices ---

type priceStore Manager

func (s *priceStore) SaveBatch(_ context.Context, points []*models.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if p.ID == "" {
			p.ID = fmt.Sprintf("%s_%d", p.AssetID, p.Timestamp.UnixNano())
		}
		s.pricePoints = append(s.pricePoints, *p)
		if cur, ok := s.latest[p.AssetID]; !ok || p.Timestamp.After(cur.Timestamp) {
			s.latest[p.AssetID] = *p
		}
	}
	return nil
}

func (s *priceStore) Latest(_ context.Context, assetID string) (*models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.latest[assetID]
	if !ok {
		return nil, fmt.Errorf("latest price for %q: %w", assetID, interfaces.ErrNotFound)
	}
	return &p, nil
}

func (s *priceStore) LatestAll(_ context.Context) (map[string]*models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.PricePoint, len(s.latest))
	for id, p := range s.latest {
		cp := p
		out[id] = &cp
	}
	return out, nil
}

func (s *priceStore) History(_ context.Context, assetID string, since time.Time) ([]*models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PricePoint
	for _, p := range s.pricePoints {
		if p.AssetID == assetID && !p.Timestamp.Before(since) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *priceStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pricePoints[:0]
	n := 0
	for _, p := range s.pricePoints {
		if p.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	s.pricePoints = kept
	return n, nil
}

// --- watchlists ---

type watchlistStore Manager

func (s *watchlistStore) Add(_ context.Context, entry *models.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlists[watchlistKey(entry.Username, entry.AssetID)] = *entry
	return nil
}

func (s *watchlistStore) Remove(_ context.Context, username, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchlists, watchlistKey(username, assetID))
	return nil
}

func (s *watchlistStore) ListByUser(_ context.Context, username string) ([]*models.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.WatchlistEntry
	for _, e := range s.watchlists {
		if e.Username == username {
			cp := e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

// --- alerts ---

type alertStore Manager

func (s *alertStore) Get(_ context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %q: %w", id, interfaces.ErrNotFound)
	}
	return &a, nil
}

func (s *alertStore) Save(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID] = *alert
	return nil
}

func (s *alertStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alerts, id)
	return nil
}

func (s *alertStore) ListByUser(_ context.Context, username string, activeOnly bool) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if a.Username != username {
			continue
		}
		if activeOnly && !a.Active {
			continue
		}
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *alertStore) ListActive(_ context.Context) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Alert
	for _, a := range s.alerts {
		if a.Active {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
