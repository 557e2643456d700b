// Package postgres is the gorm-backed Store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/types"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Store = (*Store)(nil)

// New wraps db. The connection must be opened with TranslateError so
// constraint violations surface as gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates every table the store uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Portal{},
		&models.Transaction{},
		&models.TransactionEventLog{},
	)
}

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(tx).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", repository.ErrDuplicateGatewayID, tx.GatewayID())
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("portal %s: %w", tx.PortalCode, repository.ErrNotFound)
	case err != nil:
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	res := s.db.WithContext(ctx).Model(tx).Select("*").Omit(clause.Associations, "created_at").Updates(tx)
	switch {
	case errors.Is(res.Error, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", repository.ErrDuplicateGatewayID, tx.GatewayID())
	case res.Error != nil:
		return fmt.Errorf("failed to update transaction %d: %w", tx.ID, res.Error)
	case res.RowsAffected == 0:
		return fmt.Errorf("transaction %d: %w", tx.ID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&models.Transaction{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&tx).Error; err != nil {
		return nil, notFound(err, "transaction %d", id)
	}
	return &tx, nil
}

func (s *Store) GetTransactionByGatewayID(ctx context.Context, gatewayID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).Where("transaction_id = ?", gatewayID).Take(&tx).Error; err != nil {
		return nil, notFound(err, "gateway id %s", gatewayID)
	}
	return &tx, nil
}

func (s *Store) MaxTransactionID(ctx context.Context) (int64, error) {
	var highest int64
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).Select("COALESCE(MAX(id), 0)").Scan(&highest).Error; err != nil {
		return 0, fmt.Errorf("failed to read max transaction id: %w", err)
	}
	return highest, nil
}

// ScanTransactions implements paginated/admin listing with filters
func (s *Store) ScanTransactions(ctx context.Context, req *repository.ScanRequest) (*repository.ScanResult, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.Transaction{})
	if req.UserID != nil {
		q = q.Where("user_id = ?", *req.UserID)
	}
	if req.PortalCode != "" {
		q = q.Where("portal_code = ?", req.PortalCode)
	}
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	if len(req.Filters) > 0 {
		q = q.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	rows := make([]*models.Transaction, 0, req.Size)
	err := q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"},
		{Column: clause.Column{Name: "id"}, Desc: req.SortOrder != "asc"},
	}}).Limit(req.Size).Offset(req.From).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return &repository.ScanResult{Items: rows, Total: total}, nil
}

func (s *Store) CreatePortal(ctx context.Context, p *models.Portal) error {
	err := s.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", repository.ErrPortalExists, p.CodeName)
	}
	if err != nil {
		return fmt.Errorf("failed to create portal: %w", err)
	}
	return nil
}

func (s *Store) UpdatePortal(ctx context.Context, p *models.Portal) error {
	res := s.db.WithContext(ctx).Model(p).Select("*").Omit("created_at").Updates(p)
	if res.Error != nil {
		return fmt.Errorf("failed to update portal %s: %w", p.CodeName, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("portal %s: %w", p.CodeName, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) DeletePortal(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).Where("code_name = ?", code).Delete(&models.Portal{})
	if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %s", repository.ErrPortalInUse, code)
	}
	if res.Error != nil {
		return fmt.Errorf("failed to delete portal %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("portal %s: %w", code, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) GetPortal(ctx context.Context, code string) (*models.Portal, error) {
	var p models.Portal
	if err := s.db.WithContext(ctx).Where("code_name = ?", code).Take(&p).Error; err != nil {
		return nil, notFound(err, "portal %s", code)
	}
	return &p, nil
}

func (s *Store) ListPortals(ctx context.Context) ([]*models.Portal, error) {
	var rows []*models.Portal
	if err := s.db.WithContext(ctx).Order("code_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list portals: %w", err)
	}
	return rows, nil
}

func (s *Store) SaveEventLog(ctx context.Context, log *models.TransactionEventLog) error {
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to save event log: %w", err)
	}
	return nil
}

func (s *Store) ListEventLogs(ctx context.Context, transactionID int64) ([]*models.TransactionEventLog, error) {
	var rows []*models.TransactionEventLog
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list event logs: %w", err)
	}
	return rows, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, repository.ErrNotFound)...)
	}
	return fmt.Errorf("failed to load "+format+": %w", append(args, err)...)
}
