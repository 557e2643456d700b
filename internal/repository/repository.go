// Package repository declares the persistence contract of the payment flows.
// Implementations live in the memory and postgres subpackages.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/pkg/types"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateGatewayID is returned when a gateway-assigned id is stored twice.
	ErrDuplicateGatewayID = errors.New("gateway transaction id already stored")
	ErrPortalExists       = errors.New("portal already exists")
	// ErrPortalInUse is returned when deleting a portal that transactions still reference.
	ErrPortalInUse = errors.New("portal is referenced by transactions")
	ErrInvalidScan = errors.New("invalid scan request")
)

// TransactionColumns are the columns admin scans may filter and sort on.
var TransactionColumns = []string{
	"id", "portal_code", "user_id", "linked_type", "linked_id", "amount", "currency",
	"transaction_id", "card_holder", "tracking_code", "status",
	"created_at", "create_transaction_at", "last_verify_at", "updated_at",
}

const (
	DefaultScanSize = 10
	MaxScanSize     = 200
)

// ScanRequest selects a page of transactions. UserID, PortalCode and Status are
// exact-match shortcuts applied on top of Filters.
type ScanRequest struct {
	UserID     *string               `json:"-"`
	PortalCode string                `json:"portal_code"`
	Status     types.Status          `json:"status"`
	Filters    []*types.CommonFilter `json:"filters"`
	From       int                   `json:"from"`
	Size       int                   `json:"size"`
	SortBy     string                `json:"sort_by"`
	SortOrder  string                `json:"sort_order"`
}

// Normalize clamps paging and checks every referenced column against TransactionColumns.
func (r *ScanRequest) Normalize() error {
	if r.Size <= 0 {
		r.Size = DefaultScanSize
	}
	if r.Size > MaxScanSize {
		r.Size = MaxScanSize
	}
	if r.From < 0 {
		r.From = 0
	}
	if r.SortBy == "" {
		r.SortBy = "id"
	}
	if !lo.Contains(TransactionColumns, r.SortBy) {
		return fmt.Errorf("%w: cannot sort by %q", ErrInvalidScan, r.SortBy)
	}
	if r.SortOrder != "asc" {
		r.SortOrder = "desc"
	}
	for _, f := range r.Filters {
		if err := f.Validate(TransactionColumns); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidScan, err)
		}
	}
	return nil
}

type ScanResult struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	// UpdateTransaction overwrites every column of an existing row.
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	GetTransactionByGatewayID(ctx context.Context, gatewayID string) (*models.Transaction, error)
	// MaxTransactionID returns the largest stored id, 0 when empty.
	MaxTransactionID(ctx context.Context) (int64, error)
	ScanTransactions(ctx context.Context, req *ScanRequest) (*ScanResult, error)
}

type PortalRepository interface {
	CreatePortal(ctx context.Context, p *models.Portal) error
	UpdatePortal(ctx context.Context, p *models.Portal) error
	DeletePortal(ctx context.Context, code string) error
	GetPortal(ctx context.Context, code string) (*models.Portal, error)
	ListPortals(ctx context.Context) ([]*models.Portal, error)
}

type EventLogRepository interface {
	SaveEventLog(ctx context.Context, log *models.TransactionEventLog) error
	ListEventLogs(ctx context.Context, transactionID int64) ([]*models.TransactionEventLog, error)
}

// Store is everything the service layer persists.
type Store interface {
	TransactionRepository
	PortalRepository
	EventLogRepository
}
