package transaction

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/metrics"
	"github.com/fatflowers/payportal/pkg/types"
)

type EventName string

const (
	EventPreCreate    EventName = "pre_create"
	EventPostCreate   EventName = "post_create"
	EventCreateFailed EventName = "create_failed"
	EventPreVerify    EventName = "pre_verify"
	EventPostVerify   EventName = "post_verify"
	EventPreRefund    EventName = "pre_refund"
	EventPostRefund   EventName = "post_refund"
)

// Event is a lifecycle notification. Transaction is the live object of the
// running operation; observers must not mutate it.
type Event struct {
	Name        EventName
	Transaction *models.Transaction
	Portal      *models.Portal
	Backend     string
	// CallbackURI is set on pre_create.
	CallbackURI string
	// PreviousStatus is set on post_verify and post_refund.
	PreviousStatus types.Status
	// Response is the raw gateway answer on create_failed and post_refund.
	Response *gateway.Response
}

type Observer interface {
	Notify(ctx context.Context, ev *Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev *Event) error

func (f ObserverFunc) Notify(ctx context.Context, ev *Event) error { return f(ctx, ev) }

// Bus fans events out to observers synchronously, in subscription order.
// A failing or panicking observer is logged and never affects the operation.
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
	log       *zap.SugaredLogger
	metrics   *metrics.PaymentMetrics
}

func NewBus(log *zap.SugaredLogger, m *metrics.PaymentMetrics) *Bus {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Bus{log: log, metrics: m}
}

func (b *Bus) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

func (b *Bus) Publish(ctx context.Context, ev *Event) {
	b.mu.RLock()
	observers := append([]Observer(nil), b.observers...)
	b.mu.RUnlock()

	status := ""
	if ev.Transaction != nil {
		status = string(ev.Transaction.Status)
	}
	b.metrics.IncEvent(string(ev.Name), status)

	for _, o := range observers {
		if err := b.notify(ctx, o, ev); err != nil {
			logctx.FromCtx(ctx, b.log).Errorw("transaction_observer_failed",
				"event", ev.Name,
				"observer", fmt.Sprintf("%T", o),
				"err", err,
			)
		}
	}
}

func (b *Bus) notify(ctx context.Context, o Observer, ev *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return o.Notify(ctx, ev)
}
