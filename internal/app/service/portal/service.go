package portal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/logctx"
)

var (
	ErrNotFound = errors.New("portal not found")
	ErrExists   = errors.New("portal already exists")
	// ErrInUse is returned when transactions still reference the portal.
	ErrInUse      = errors.New("portal is in use")
	ErrValidation = errors.New("invalid portal")
)

var codeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,49}$`)

// Input is the writable part of a portal. An empty APIKey on update keeps the stored key.
type Input struct {
	CodeName        string  `json:"code_name"`
	Name            string  `json:"name"`
	Backend         string  `json:"backend"`
	APIKey          string  `json:"api_key"`
	OrderIDPrefix   string  `json:"order_id_prefix"`
	DefaultCurrency *string `json:"default_currency"`
	AmountStep      int64   `json:"amount_step"`
}

type Service struct {
	store    repository.PortalRepository
	registry *gateway.Registry
	log      *zap.SugaredLogger
}

func NewService(store repository.Store, registry *gateway.Registry, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, registry: registry, log: log}
}

// Backends lists the adapters a portal can be bound to, in registration order.
func (s *Service) Backends() []gateway.Choice {
	return s.registry.Choices()
}

func (s *Service) List(ctx context.Context) ([]*models.Portal, error) {
	return s.store.ListPortals(ctx)
}

func (s *Service) Get(ctx context.Context, code string) (*models.Portal, error) {
	p, err := s.store.GetPortal(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return p, err
}

func (s *Service) Create(ctx context.Context, in *Input) (*models.Portal, error) {
	if err := s.validate(in, true); err != nil {
		return nil, err
	}
	p := &models.Portal{CodeName: in.CodeName}
	apply(p, in)

	err := s.store.CreatePortal(ctx, p)
	if errors.Is(err, repository.ErrPortalExists) {
		return nil, fmt.Errorf("%w: %s", ErrExists, in.CodeName)
	}
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("portal_created", "portal", p.CodeName, "backend", p.Backend)
	return p, nil
}

// Update rewrites the portal named by code. The code name itself is immutable.
func (s *Service) Update(ctx context.Context, code string, in *Input) (*models.Portal, error) {
	p, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	in.CodeName = code
	if err := s.validate(in, false); err != nil {
		return nil, err
	}
	apply(p, in)

	if err := s.store.UpdatePortal(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
		}
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("portal_updated", "portal", p.CodeName, "backend", p.Backend)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, code string) error {
	err := s.store.DeletePortal(ctx, code)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	case errors.Is(err, repository.ErrPortalInUse):
		return fmt.Errorf("%w: %s", ErrInUse, code)
	case err != nil:
		return err
	}
	logctx.FromCtx(ctx, s.log).Infow("portal_deleted", "portal", code)
	return nil
}

func (s *Service) validate(in *Input, creating bool) error {
	in.CodeName = strings.TrimSpace(in.CodeName)
	in.Name = strings.TrimSpace(in.Name)

	switch {
	case !codeNamePattern.MatchString(in.CodeName):
		return fmt.Errorf("%w: code_name %q must be lowercase letters, digits, '-' or '_'", ErrValidation, in.CodeName)
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case creating && in.APIKey == "":
		return fmt.Errorf("%w: api_key is required", ErrValidation)
	case in.AmountStep < 0:
		return fmt.Errorf("%w: amount_step must not be negative", ErrValidation)
	case in.DefaultCurrency != nil && len(*in.DefaultCurrency) > 8:
		return fmt.Errorf("%w: default_currency %q is too long", ErrValidation, *in.DefaultCurrency)
	}
	if _, ok := s.registry.Get(in.Backend); !ok {
		return fmt.Errorf("%w: unknown backend %q", ErrValidation, in.Backend)
	}
	return nil
}

func apply(p *models.Portal, in *Input) {
	p.Name = in.Name
	p.Backend = in.Backend
	if in.APIKey != "" {
		p.APIKey = in.APIKey
	}
	p.OrderIDPrefix = in.OrderIDPrefix
	p.DefaultCurrency = in.DefaultCurrency
	if p.DefaultCurrency != nil && *p.DefaultCurrency == "" {
		p.DefaultCurrency = nil
	}
	p.AmountStep = in.AmountStep
}

var Module = fx.Options(
	fx.Provide(NewService),
)
