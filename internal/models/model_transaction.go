package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fatflowers/payportal/pkg/types"

	"gorm.io/datatypes"
)

var (
	cardHolderPattern = regexp.MustCompile(`^[\d*]{4}(?:-[\d*]{4}){3}$`)
	bareCardPattern   = regexp.MustCompile(`^[\d*]{16}$`)
	digitsPattern     = regexp.MustCompile(`^\d+$`)
)

// Transaction is one attempt to move money through a Portal.
type Transaction struct {
	// ID is allocated before the create request is sent; it is never assigned by the database.
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	PortalCode string  `gorm:"column:portal_code;type:varchar(50);not null;index" json:"portal_code"`
	Portal     *Portal `gorm:"foreignKey:PortalCode;references:CodeName;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	UserID     *string `gorm:"column:user_id;type:varchar(64);index" json:"user_id"`
	// LinkedType and LinkedID correlate the payment with an application entity (order, invoice, ...).
	LinkedType *string `gorm:"column:linked_type;type:varchar(128);default:null" json:"linked_type"`
	LinkedID   *int64  `gorm:"column:linked_id;default:null" json:"linked_id"`
	Amount     int64   `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency   string  `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	// TransactionID is assigned by the gateway; unique among non-null values.
	TransactionID *string           `gorm:"column:transaction_id;type:varchar(255);index:transaction_unique,unique,where:transaction_id IS NOT NULL" json:"transaction_id"`
	CardHolder    string            `gorm:"column:card_holder;type:varchar(19)" json:"card_holder"`
	TrackingCode  string            `gorm:"column:tracking_code;type:varchar(32)" json:"tracking_code"`
	Status        types.Status      `gorm:"column:status;type:varchar(64);not null" json:"status"`
	Description   *string           `gorm:"column:description;type:text" json:"description"`
	Other         datatypes.JSONMap `gorm:"column:other;type:jsonb;default:'{}'" json:"other"`

	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreateTransactionAt *time.Time `gorm:"column:create_transaction_at;default:null" json:"create_transaction_at"`
	LastVerifyAt        *time.Time `gorm:"column:last_verify_at;default:null" json:"last_verify_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}

// GatewayID returns the gateway-assigned id or "".
func (t *Transaction) GatewayID() string {
	if t == nil || t.TransactionID == nil {
		return ""
	}
	return *t.TransactionID
}

// OrderReference builds the gateway-visible order id for the transaction.
func (t *Transaction) OrderReference(p *Portal) string {
	return fmt.Sprintf("%s_%d", p.OrderPrefix(), t.ID)
}

// Attribute exposes transaction fields by logical flag name for request building.
func (t *Transaction) Attribute(name string) (any, bool) {
	switch name {
	case "description":
		if t.Description != nil && *t.Description != "" {
			return *t.Description, true
		}
	case "currency":
		return t.Currency, t.Currency != ""
	case "amount":
		return t.Amount, true
	case "user_id":
		if t.UserID != nil {
			return *t.UserID, true
		}
	}
	if v, ok := t.Other[name]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// NormalizeCardHolder turns gateway card masks into the "xxxx-xxxx-xxxx-xxxx" form.
func NormalizeCardHolder(s string) (string, error) {
	s = strings.TrimSpace(s)
	if bareCardPattern.MatchString(s) {
		s = s[0:4] + "-" + s[4:8] + "-" + s[8:12] + "-" + s[12:16]
	}
	if !cardHolderPattern.MatchString(s) {
		return "", fmt.Errorf("invalid card holder %q", s)
	}
	return s, nil
}

// NormalizeTrackingCode accepts digits only.
func NormalizeTrackingCode(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !digitsPattern.MatchString(s) {
		return "", fmt.Errorf("tracking code %q must contain digits only", s)
	}
	return s, nil
}
