package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionEventLog records every lifecycle event a transaction went through.
// Used for troubleshooting gateway disputes.
type TransactionEventLog struct {
	ID            string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Event         string  `gorm:"column:event;type:varchar(64);not null" json:"event"`
	PortalCode    string  `gorm:"column:portal_code;type:varchar(50);not null" json:"portal_code"`
	TransactionID int64   `gorm:"column:transaction_id;index" json:"transaction_id"`
	GatewayID     *string `gorm:"column:gateway_id;type:varchar(255)" json:"gateway_id"`
	UserID        *string `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID       string  `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Status        string  `gorm:"column:status;type:varchar(64)" json:"status"`
	// Data holds the transaction snapshot plus the raw gateway response when there is one.
	Data      datatypes.JSON `gorm:"column:data;type:jsonb" json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

func (TransactionEventLog) TableName() string { return "transaction_event_log" }
