package transaction

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/types"
)

type CreateRequest struct {
	PortalCode  string `json:"portal_code"`
	Amount      int64  `json:"amount"`
	CallbackURI string `json:"callback_uri"`
	// Currency falls back to the portal default, then to payment.default_currency.
	Currency    *string        `json:"currency,omitempty"`
	UserID      *string        `json:"user_id,omitempty"`
	LinkedType  *string        `json:"linked_type,omitempty"`
	LinkedID    *int64         `json:"linked_id,omitempty"`
	Description *string        `json:"description,omitempty"`
	Other       map[string]any `json:"other,omitempty"`
	// Flags override request flags resolved from the transaction and the user.
	Flags map[string]any `json:"flags,omitempty"`
	// User supplies payer attributes such as phone and full name.
	User gateway.UserAttributes `json:"-"`
}

// Create registers a transaction with the portal's gateway. Nothing is stored
// unless the gateway accepts it; every input is validated before an id is allocated.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*models.Transaction, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrValidation)
	}
	portal, backend, err := s.portalBackend(ctx, req.PortalCode)
	if err != nil {
		return nil, err
	}
	cfg := backend.Config()
	if len(cfg.ErrorMapping) == 0 {
		return nil, fmt.Errorf("%w: %s has no error mapping", gateway.ErrNotImplemented, backend.Key())
	}

	if err := s.validateAmount(portal, req.Amount); err != nil {
		return nil, err
	}
	currency, err := s.resolveCurrency(portal, req.Currency)
	if err != nil {
		return nil, err
	}
	if err := validateCallbackURI(req.CallbackURI); err != nil {
		return nil, err
	}
	tx := &models.Transaction{
		PortalCode:  portal.CodeName,
		Portal:      portal,
		UserID:      req.UserID,
		LinkedType:  req.LinkedType,
		LinkedID:    req.LinkedID,
		Amount:      req.Amount,
		Currency:    currency,
		Status:      types.StatusWaitingForPayment,
		Description: req.Description,
		Other:       req.Other,
	}
	creq := &gateway.CreateRequest{
		Transaction: tx,
		Portal:      portal,
		CallbackURI: req.CallbackURI,
		Flags:       req.Flags,
		User:        req.User,
	}
	// Flags may come from the transaction or the user as well as the overrides,
	// so the resolved values are what gets validated and sent.
	if err := backend.ValidateFlags(resolveFlags(cfg, creq)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	endpoint, ok := cfg.URL(gateway.EndpointCreate)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no create url", gateway.ErrNotImplemented, backend.Key())
	}
	if auto, ok := cfg.URL(gateway.EndpointAutoVerifyCreate); ok {
		if v, set := creq.Resolve(gateway.FlagAutoVerify); set && gateway.IsTruthy(v) {
			endpoint = auto
		}
	}

	log := logctx.FromCtx(ctx, s.log).With("portal", portal.CodeName, "backend", backend.Key())

	s.bus.Publish(ctx, &Event{Name: EventPreCreate, Transaction: tx, Portal: portal, Backend: backend.Key(), CallbackURI: req.CallbackURI})

	if tx.ID, err = s.ids.Next(ctx); err != nil {
		return nil, err
	}

	data, err := backend.CreateContext(creq)
	if err != nil {
		return nil, err
	}
	data[cfg.APIKeyName] = portal.APIKey
	data[cfg.Translate(gateway.FieldOrderID)] = tx.OrderReference(portal)
	data[cfg.Translate(gateway.FieldAmount)] = tx.Amount
	data[cfg.Translate(gateway.FieldCallbackURI)] = req.CallbackURI
	data[cfg.Translate(gateway.FieldCurrency)] = tx.Currency

	resp, payload, err := s.post(ctx, backend, portal, "create", endpoint, data)
	if err != nil {
		log.Warnw("transaction_create_failed", "transaction_id", tx.ID, "err", err)
		s.bus.Publish(ctx, &Event{Name: EventCreateFailed, Transaction: tx, Portal: portal, Backend: backend.Key(), Response: resp})
		return nil, err
	}

	code, _ := backend.Status(payload)
	status, mapped := cfg.MapStatus(code)
	if !mapped {
		status = types.StatusFailed
	}
	tx.Status = status
	if status.IsHardFailure() {
		log.Warnw("transaction_create_rejected", "transaction_id", tx.ID, "code", code, "status", status)
		return nil, gateway.HardFailure(code, status)
	}

	gid := gateway.ValueString(payload[cfg.TransactionIDKeyName])
	if gid == "" {
		return nil, &gateway.PaymentError{
			Code:   code,
			Status: status,
			Err:    fmt.Errorf("%w: no %s in create response", gateway.ErrMalformedResponse, cfg.TransactionIDKeyName),
		}
	}
	now := s.now()
	tx.TransactionID = &gid
	tx.CreateTransactionAt = &now
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction %d: %w", tx.ID, err)
	}
	log.Infow("transaction_created", "transaction_id", tx.ID, "gateway_id", gid, "status", tx.Status)

	s.bus.Publish(ctx, &Event{Name: EventPostCreate, Transaction: tx, Portal: portal, Backend: backend.Key()})
	return tx, nil
}

func resolveFlags(cfg *gateway.Config, req *gateway.CreateRequest) map[string]any {
	out := make(map[string]any, len(cfg.RequestFlags)+len(req.Flags))
	for k, v := range req.Flags {
		out[k] = v
	}
	for _, flag := range cfg.RequestFlags {
		if v, ok := req.Resolve(flag); ok {
			out[flag] = v
		}
	}
	return out
}

func (s *Service) validateAmount(portal *models.Portal, amount int64) error {
	step := portal.AmountStep
	if step <= 0 {
		step = s.cfg.Payment.AmountStep
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if step > 0 && amount%step != 0 {
		return fmt.Errorf("%w: amount must be a multiple of %d", ErrValidation, step)
	}
	return nil
}

func (s *Service) resolveCurrency(portal *models.Portal, explicit *string) (string, error) {
	switch {
	case explicit != nil && *explicit != "":
		return *explicit, nil
	case portal.DefaultCurrency != nil && *portal.DefaultCurrency != "":
		return *portal.DefaultCurrency, nil
	case s.cfg.Payment.DefaultCurrency != "":
		return s.cfg.Payment.DefaultCurrency, nil
	}
	return "", fmt.Errorf("%w: currency is required when the portal has no default currency", ErrValidation)
}

func validateCallbackURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", gateway.ErrInvalidCallbackURL, raw)
	}
	return nil
}
