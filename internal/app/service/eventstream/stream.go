// Package eventstream forwards transaction lifecycle events to Kafka.
package eventstream

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/platform/kafka"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/tool"
	"github.com/fatflowers/payportal/pkg/types"
)

const eventVersion = 1

// Message is the wire shape of a published event.
type Message struct {
	EventID        string       `json:"event_id"`
	EventType      string       `json:"event_type"`
	EventVersion   int          `json:"event_version"`
	OccurredAt     time.Time    `json:"occurred_at"`
	TransactionID  int64        `json:"transaction_id"`
	GatewayID      string       `json:"gateway_id,omitempty"`
	Portal         string       `json:"portal"`
	Backend        string       `json:"backend"`
	Status         types.Status `json:"status"`
	PreviousStatus types.Status `json:"previous_status,omitempty"`
	Amount         int64        `json:"amount"`
	Currency       string       `json:"currency"`
	UserID         *string      `json:"user_id,omitempty"`
	LinkedType     *string      `json:"linked_type,omitempty"`
	LinkedID       *int64       `json:"linked_id,omitempty"`
}

// Streamer publishes post-operation events. A nil publisher disables it.
type Streamer struct {
	pub *kafka.Publisher
	now func() time.Time
}

func New(pub *kafka.Publisher) *Streamer {
	return &Streamer{pub: pub, now: time.Now}
}

// published lists the events consumers care about; pre-events carry no outcome.
var published = map[transaction.EventName]bool{
	transaction.EventPostCreate:   true,
	transaction.EventCreateFailed: true,
	transaction.EventPostVerify:   true,
	transaction.EventPostRefund:   true,
}

func (s *Streamer) Notify(ctx context.Context, ev *transaction.Event) error {
	if s.pub == nil || !published[ev.Name] || ev.Transaction == nil {
		return nil
	}
	tx := ev.Transaction
	msg := Message{
		EventID:        tool.GenerateUUIDV7(),
		EventType:      "transaction." + string(ev.Name),
		EventVersion:   eventVersion,
		OccurredAt:     s.now().UTC(),
		TransactionID:  tx.ID,
		GatewayID:      tx.GatewayID(),
		Portal:         tx.PortalCode,
		Backend:        ev.Backend,
		Status:         tx.Status,
		PreviousStatus: ev.PreviousStatus,
		Amount:         tx.Amount,
		Currency:       tx.Currency,
		UserID:         tx.UserID,
		LinkedType:     tx.LinkedType,
		LinkedID:       tx.LinkedID,
	}
	var headers map[string]string
	if tid := logctx.TraceID(ctx); tid != "" {
		headers = map[string]string{"trace_id": tid}
	}
	return s.pub.PublishJSON(ctx, strconv.FormatInt(tx.ID, 10), msg, headers)
}

var Module = fx.Options(
	kafka.Module,
	fx.Provide(transaction.AsObserver(New)),
)
