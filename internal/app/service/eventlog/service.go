// Package eventlog keeps an audit trail of every lifecycle event a transaction went through.
package eventlog

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/payportal/internal/app/service/transaction"
	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/repository"
	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/tool"
	"github.com/fatflowers/payportal/pkg/types"
)

type Recorder struct {
	store   repository.EventLogRepository
	log     *zap.SugaredLogger
	pending sync.WaitGroup
}

func NewRecorder(store repository.Store, log *zap.SugaredLogger) *Recorder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Recorder{store: store, log: log}
}

type payload struct {
	Transaction    *models.Transaction `json:"transaction"`
	PreviousStatus types.Status        `json:"previous_status,omitempty"`
	Response       json.RawMessage     `json:"response,omitempty"`
	ResponseText   string              `json:"response_text,omitempty"`
	HTTPStatus     int                 `json:"http_status,omitempty"`
}

// Notify snapshots the event and persists it in the background. Events without
// an allocated transaction id are skipped.
func (r *Recorder) Notify(ctx context.Context, ev *transaction.Event) error {
	if ev.Transaction == nil || ev.Transaction.ID == 0 {
		return nil
	}
	entry, err := r.entry(ctx, ev)
	if err != nil {
		return err
	}
	r.Save(ctx, entry)
	return nil
}

// Save asynchronously persists an event log. Nil input is ignored.
func (r *Recorder) Save(ctx context.Context, entry *models.TransactionEventLog) {
	if entry == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		if entry.ID == "" {
			entry.ID = tool.GenerateUUIDV7()
		}
		if err := r.store.SaveEventLog(ctx, entry); err != nil {
			logctx.FromCtx(ctx, r.log).Errorw("event_log_save_failed",
				"event", entry.Event,
				"transaction_id", entry.TransactionID,
				"err", err,
			)
		}
	}()
}

// Wait blocks until every pending save has finished.
func (r *Recorder) Wait() {
	r.pending.Wait()
}

func (r *Recorder) List(ctx context.Context, transactionID int64) ([]*models.TransactionEventLog, error) {
	return r.store.ListEventLogs(ctx, transactionID)
}

// entry is built synchronously: the event carries the live transaction.
func (r *Recorder) entry(ctx context.Context, ev *transaction.Event) (*models.TransactionEventLog, error) {
	tx := ev.Transaction
	p := payload{Transaction: tx, PreviousStatus: ev.PreviousStatus}
	if ev.Response != nil {
		p.HTTPStatus = ev.Response.StatusCode
		if json.Valid(ev.Response.Body) {
			p.Response = json.RawMessage(ev.Response.Body)
		} else {
			p.ResponseText = string(ev.Response.Body)
		}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	entry := &models.TransactionEventLog{
		Event:         string(ev.Name),
		PortalCode:    tx.PortalCode,
		TransactionID: tx.ID,
		TraceID:       logctx.TraceID(ctx),
		Status:        string(tx.Status),
		Data:          datatypes.JSON(data),
	}
	if gid := tx.GatewayID(); gid != "" {
		entry.GatewayID = &gid
	}
	if tx.UserID != nil {
		uid := *tx.UserID
		entry.UserID = &uid
	}
	return entry, nil
}

func registerDrain(lc fx.Lifecycle, r *Recorder) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			r.Wait()
			return nil
		},
	})
}

func asObserver(r *Recorder) *Recorder { return r }

var Module = fx.Options(
	fx.Provide(
		NewRecorder,
		transaction.AsObserver(asObserver),
	),
	fx.Invoke(registerDrain),
)
