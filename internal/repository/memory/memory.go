// Package memory is an in-process Store for development and tests.
// It enforces the same uniqueness and referential rules as the postgres store.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/types"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[int64]*models.Transaction
	portals      map[string]*models.Portal
	events       []*models.TransactionEventLog
	now          func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: make(map[int64]*models.Transaction),
		portals:      make(map[string]*models.Portal),
		now:          time.Now,
	}
}

// ----- transactions -----

func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[tx.ID]; ok {
		return fmt.Errorf("transaction %d already exists", tx.ID)
	}
	if _, ok := s.portals[tx.PortalCode]; !ok {
		return fmt.Errorf("portal %s: %w", tx.PortalCode, repository.ErrNotFound)
	}
	if err := s.checkGatewayIDLocked(tx); err != nil {
		return err
	}
	now := s.now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	s.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[tx.ID]; !ok {
		return fmt.Errorf("transaction %d: %w", tx.ID, repository.ErrNotFound)
	}
	if err := s.checkGatewayIDLocked(tx); err != nil {
		return err
	}
	tx.UpdatedAt = s.now()
	s.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (s *Store) checkGatewayIDLocked(tx *models.Transaction) error {
	gid := tx.GatewayID()
	if tx.TransactionID == nil {
		return nil
	}
	for id, other := range s.transactions {
		if id != tx.ID && other.TransactionID != nil && *other.TransactionID == gid {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateGatewayID, gid)
		}
	}
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, repository.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, repository.ErrNotFound)
	}
	return cloneTransaction(tx), nil
}

func (s *Store) GetTransactionByGatewayID(_ context.Context, gatewayID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.TransactionID != nil && *tx.TransactionID == gatewayID {
			return cloneTransaction(tx), nil
		}
	}
	return nil, fmt.Errorf("gateway id %s: %w", gatewayID, repository.ErrNotFound)
}

func (s *Store) MaxTransactionID(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var highest int64
	for id := range s.transactions {
		if id > highest {
			highest = id
		}
	}
	return highest, nil
}

func (s *Store) ScanTransactions(_ context.Context, req *repository.ScanRequest) (*repository.ScanResult, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]*models.Transaction, 0)
	for _, tx := range s.transactions {
		if matches(tx, req) {
			matched = append(matched, cloneTransaction(tx))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		c := compareColumn(matched[i], matched[j], req.SortBy)
		if c == 0 {
			c = compareInts(matched[i].ID, matched[j].ID)
		}
		if req.SortOrder == "asc" {
			return c < 0
		}
		return c > 0
	})

	total := int64(len(matched))
	if req.From >= len(matched) {
		return &repository.ScanResult{Items: []*models.Transaction{}, Total: total}, nil
	}
	end := min(req.From+req.Size, len(matched))
	return &repository.ScanResult{Items: matched[req.From:end], Total: total}, nil
}

func matches(tx *models.Transaction, req *repository.ScanRequest) bool {
	if req.UserID != nil && (tx.UserID == nil || *tx.UserID != *req.UserID) {
		return false
	}
	if req.PortalCode != "" && tx.PortalCode != req.PortalCode {
		return false
	}
	if req.Status != "" && tx.Status != req.Status {
		return false
	}
	return lo.EveryBy(req.Filters, func(f *types.CommonFilter) bool { return matchFilter(tx, f) })
}

// ----- portals -----

func (s *Store) CreatePortal(_ context.Context, p *models.Portal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portals[p.CodeName]; ok {
		return fmt.Errorf("%w: %s", repository.ErrPortalExists, p.CodeName)
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.portals[p.CodeName] = &cp
	return nil
}

func (s *Store) UpdatePortal(_ context.Context, p *models.Portal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.portals[p.CodeName]
	if !ok {
		return fmt.Errorf("portal %s: %w", p.CodeName, repository.ErrNotFound)
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = s.now()
	cp := *p
	s.portals[p.CodeName] = &cp
	return nil
}

func (s *Store) DeletePortal(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portals[code]; !ok {
		return fmt.Errorf("portal %s: %w", code, repository.ErrNotFound)
	}
	for _, tx := range s.transactions {
		if tx.PortalCode == code {
			return fmt.Errorf("%w: %s", repository.ErrPortalInUse, code)
		}
	}
	delete(s.portals, code)
	return nil
}

func (s *Store) GetPortal(_ context.Context, code string) (*models.Portal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portals[code]
	if !ok {
		return nil, fmt.Errorf("portal %s: %w", code, repository.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListPortals(_ context.Context) ([]*models.Portal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Portal, 0, len(s.portals))
	for _, p := range s.portals {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CodeName < out[j].CodeName })
	return out, nil
}

// ----- event log -----

func (s *Store) SaveEventLog(_ context.Context, log *models.TransactionEventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}
	cp := *log
	s.events = append(s.events, &cp)
	return nil
}

func (s *Store) ListEventLogs(_ context.Context, transactionID int64) ([]*models.TransactionEventLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.FilterMap(s.events, func(e *models.TransactionEventLog, _ int) (*models.TransactionEventLog, bool) {
		if e.TransactionID != transactionID {
			return nil, false
		}
		cp := *e
		return &cp, true
	}), nil
}

func cloneTransaction(tx *models.Transaction) *models.Transaction {
	cp := *tx
	cp.Portal = nil
	if tx.Other != nil {
		cp.Other = maps.Clone(tx.Other)
	}
	return &cp
}
