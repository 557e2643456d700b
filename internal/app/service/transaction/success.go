package transaction

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/types"
)

// SuccessHandler reacts to a linked entity being paid for, e.g. marking an order as paid.
type SuccessHandler func(ctx context.Context, tx *models.Transaction) error

// SuccessHandlers dispatches a transaction that just became successful to the
// handler registered for its linked type. It is subscribed to the bus as an Observer.
type SuccessHandlers struct {
	mu       sync.RWMutex
	handlers map[string]SuccessHandler
	log      *zap.SugaredLogger
}

func NewSuccessHandlers(log *zap.SugaredLogger) *SuccessHandlers {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SuccessHandlers{handlers: map[string]SuccessHandler{}, log: log}
}

// Register binds h to linkedType, replacing any previous handler.
func (s *SuccessHandlers) Register(linkedType string, h SuccessHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[linkedType] = h
}

func (s *SuccessHandlers) Notify(ctx context.Context, ev *Event) error {
	if ev.Name != EventPostVerify {
		return nil
	}
	tx := ev.Transaction
	if tx == nil || tx.Status != types.StatusSuccessful || ev.PreviousStatus == types.StatusSuccessful {
		return nil
	}
	if tx.LinkedType == nil {
		return nil
	}

	s.mu.RLock()
	h, ok := s.handlers[*tx.LinkedType]
	s.mu.RUnlock()
	if !ok {
		logctx.FromCtx(ctx, s.log).Debugw("no success handler", "linked_type", *tx.LinkedType, "transaction_id", tx.ID)
		return nil
	}
	if err := h(ctx, tx); err != nil {
		return fmt.Errorf("success handler %s for transaction %d: %w", *tx.LinkedType, tx.ID, err)
	}
	return nil
}
