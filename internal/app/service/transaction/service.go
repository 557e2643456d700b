package transaction

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/config"
)

// TransactionManager drives transactions through a gateway and exposes them to the API.
type TransactionManager interface {
	Create(ctx context.Context, req *CreateRequest) (*models.Transaction, error)
	Verify(ctx context.Context, id int64) (*models.Transaction, error)
	Refund(ctx context.Context, id int64) (*models.Transaction, error)
	RedirectURL(ctx context.Context, tx *models.Transaction) (string, error)
	// FromQueryParams finds the transaction a gateway callback refers to.
	FromQueryParams(ctx context.Context, portalCode string, params url.Values) (*models.Transaction, error)
	SupportRefund(ctx context.Context, portalCode string) (bool, error)
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	// GetForUser hides transactions owned by other users behind ErrTransactionNotFound.
	GetForUser(ctx context.Context, userID string, id int64) (*models.Transaction, error)
	ScanTransactions(ctx context.Context, req *repository.ScanRequest) (*repository.ScanResult, error)
}

type Service struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	store    repository.Store
	registry *gateway.Registry
	client   *gateway.Client
	bus      *Bus
	ids      Allocator
	now      func() time.Time
}

var _ TransactionManager = (*Service)(nil)

func NewService(cfg *config.Config, log *zap.SugaredLogger, store repository.Store, registry *gateway.Registry, client *gateway.Client, bus *Bus, ids Allocator) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		store:    store,
		registry: registry,
		client:   client,
		bus:      bus,
		ids:      ids,
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	return tx, err
}

func (s *Service) GetForUser(ctx context.Context, userID string, id int64) (*models.Transaction, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.UserID == nil || *tx.UserID != userID {
		return nil, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	return tx, nil
}

func (s *Service) ScanTransactions(ctx context.Context, req *repository.ScanRequest) (*repository.ScanResult, error) {
	res, err := s.store.ScanTransactions(ctx, req)
	if errors.Is(err, repository.ErrInvalidScan) {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return res, err
}

func (s *Service) SupportRefund(ctx context.Context, portalCode string) (bool, error) {
	_, backend, err := s.portalBackend(ctx, portalCode)
	if err != nil {
		return false, err
	}
	return backend.Config().SupportRefund(), nil
}

func (s *Service) RedirectURL(ctx context.Context, tx *models.Transaction) (string, error) {
	_, backend, err := s.portalBackend(ctx, tx.PortalCode)
	if err != nil {
		return "", err
	}
	tmpl, ok := backend.Config().URL(gateway.EndpointRedirect)
	if !ok {
		return "", fmt.Errorf("%w: %s has no redirect url", gateway.ErrNotImplemented, backend.Key())
	}
	gid := tx.GatewayID()
	if gid == "" {
		return "", fmt.Errorf("%w: %d", ErrNoGatewayID, tx.ID)
	}
	return strings.ReplaceAll(tmpl, gateway.RedirectPlaceholder, url.PathEscape(gid)), nil
}

func (s *Service) FromQueryParams(ctx context.Context, portalCode string, params url.Values) (*models.Transaction, error) {
	_, backend, err := s.portalBackend(ctx, portalCode)
	if err != nil {
		return nil, err
	}
	cfg := backend.Config()
	key := cfg.Translate(cfg.TransactionIDKeyName)
	gid := strings.TrimSpace(params.Get(key))
	if gid == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrTransactionNotFound, key)
	}
	tx, err := s.store.GetTransactionByGatewayID(ctx, gid)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && tx.PortalCode != portalCode) {
		return nil, fmt.Errorf("%w: %s=%s", ErrTransactionNotFound, key, gid)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) portalBackend(ctx context.Context, code string) (*models.Portal, gateway.Backend, error) {
	portal, err := s.store.GetPortal(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", ErrPortalNotFound, code)
	}
	if err != nil {
		return nil, nil, err
	}
	backend, err := s.registry.Resolve(portal.Backend)
	if err != nil {
		return nil, nil, err
	}
	return portal, backend, nil
}

// load returns the transaction with its portal and backend.
func (s *Service) load(ctx context.Context, id int64) (*models.Transaction, *models.Portal, gateway.Backend, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	portal, backend, err := s.portalBackend(ctx, tx.PortalCode)
	if err != nil {
		return nil, nil, nil, err
	}
	tx.Portal = portal
	return tx, portal, backend, nil
}

// post sends data to endpoint and decodes the JSON answer. A transport failure
// or non-2xx answer returns the response (possibly nil) with a PaymentError.
func (s *Service) post(ctx context.Context, backend gateway.Backend, portal *models.Portal, op string, endpoint string, data map[string]any) (*gateway.Response, map[string]any, error) {
	cfg := backend.Config()
	resp, err := s.client.Post(ctx, &gateway.Request{
		Backend:   backend.Key(),
		Operation: op,
		URL:       endpoint,
		Encoding:  cfg.Encoding,
		Headers:   backend.Headers(portal),
		Data:      data,
	})
	if err != nil || !resp.OK() {
		return resp, nil, gateway.NotOK(resp, err)
	}
	payload, err := resp.Payload()
	if err != nil {
		return resp, nil, &gateway.PaymentError{Code: "malformed", Err: err}
	}
	return resp, payload, nil
}
