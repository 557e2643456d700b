package transaction

import (
	"context"
	"fmt"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/types"
)

// Verify asks the gateway for the outcome of a transaction and stores it.
// Transactions already in a terminal status are returned unchanged without a gateway call.
func (s *Service) Verify(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, portal, backend, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg := backend.Config()
	if len(cfg.ErrorMapping) == 0 {
		return nil, fmt.Errorf("%w: %s has no error mapping", gateway.ErrNotImplemented, backend.Key())
	}
	endpoint, ok := cfg.URL(gateway.EndpointVerify)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no verify url", gateway.ErrNotImplemented, backend.Key())
	}
	log := logctx.FromCtx(ctx, s.log).With("portal", portal.CodeName, "backend", backend.Key(), "transaction_id", tx.ID)

	s.bus.Publish(ctx, &Event{Name: EventPreVerify, Transaction: tx, Portal: portal, Backend: backend.Key()})

	previous := tx.Status
	if previous.IsTerminal() {
		log.Debugw("transaction_verify_skipped", "status", previous)
		s.bus.Publish(ctx, &Event{Name: EventPostVerify, Transaction: tx, Portal: portal, Backend: backend.Key(), PreviousStatus: previous})
		return tx, nil
	}

	_, payload, err := s.post(ctx, backend, portal, "verify", endpoint, backend.VerifyContext(tx, portal))
	if err != nil {
		log.Warnw("transaction_verify_failed", "err", err)
		return nil, err
	}
	code, ok := backend.Status(payload)
	if !ok {
		return nil, &gateway.PaymentError{Code: "missing", Err: fmt.Errorf("%w: no status in verify response", gateway.ErrMalformedResponse)}
	}
	status, mapped := cfg.MapStatus(code)
	if !mapped {
		log.Warnw("transaction_verify_unmapped", "code", code)
		return nil, &gateway.PaymentError{Code: code, Detail: fmt.Sprintf("gateway answered with unknown status code %s", code)}
	}

	tx.Status = status
	if err := backend.ApplyVerifyResult(tx, status, payload); err != nil {
		log.Warnw("transaction_receiving_flags_skipped", "err", err)
	}
	now := s.now()
	tx.LastVerifyAt = &now
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction %d: %w", tx.ID, err)
	}
	log.Infow("transaction_verified", "code", code, "previous_status", previous, "status", status)

	s.bus.Publish(ctx, &Event{Name: EventPostVerify, Transaction: tx, Portal: portal, Backend: backend.Key(), PreviousStatus: previous})
	return tx, nil
}

// Refund asks the gateway to return the money of a transaction. Codes the
// gateway does not document are recorded as refund_failed.
func (s *Service) Refund(ctx context.Context, id int64) (*models.Transaction, error) {
	tx, portal, backend, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg := backend.Config()
	endpoint, ok := cfg.URL(gateway.EndpointRefund)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not support refunds", gateway.ErrNotImplemented, backend.Key())
	}
	if len(cfg.ErrorMapping) == 0 {
		return nil, fmt.Errorf("%w: %s has no error mapping", gateway.ErrNotImplemented, backend.Key())
	}
	log := logctx.FromCtx(ctx, s.log).With("portal", portal.CodeName, "backend", backend.Key(), "transaction_id", tx.ID)

	s.bus.Publish(ctx, &Event{Name: EventPreRefund, Transaction: tx, Portal: portal, Backend: backend.Key()})

	data, err := backend.RefundContext(tx, portal)
	if err != nil {
		return nil, err
	}
	resp, payload, err := s.post(ctx, backend, portal, "refund", endpoint, data)
	if err != nil {
		log.Warnw("transaction_refund_failed", "err", err)
		return nil, err
	}

	previous := tx.Status
	code, _ := backend.Status(payload)
	status, mapped := cfg.MapStatus(code)
	if !mapped {
		status = types.StatusRefundFailed
	}
	tx.Status = status
	now := s.now()
	tx.LastVerifyAt = &now
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction %d: %w", tx.ID, err)
	}
	log.Infow("transaction_refunded", "code", code, "previous_status", previous, "status", status)

	s.bus.Publish(ctx, &Event{Name: EventPostRefund, Transaction: tx, Portal: portal, Backend: backend.Key(), PreviousStatus: previous, Response: resp})
	return tx, nil
}
