package models

import (
	"time"
)

// Portal is a configured payment gateway instance.
type Portal struct {
	// CodeName is the stable identifier used in URLs and lookups.
	CodeName string `gorm:"column:code_name;primary_key;type:varchar(50)" json:"code_name"`
	Name     string `gorm:"column:name;type:varchar(128);not null" json:"name"`
	// Backend is the registry key of the adapter that talks to this gateway.
	Backend string `gorm:"column:backend;type:varchar(512);not null" json:"backend"`
	APIKey  string `gorm:"column:api_key;type:varchar(255);not null" json:"-"`
	// OrderIDPrefix prefixes gateway-visible order references; CodeName is used when empty.
	OrderIDPrefix   string  `gorm:"column:order_id_prefix;type:varchar(128)" json:"order_id_prefix"`
	DefaultCurrency *string `gorm:"column:default_currency;type:varchar(8);default:null" json:"default_currency"`
	// AmountStep is the minimum unit every transaction amount must be a multiple of. 0 means the configured default.
	AmountStep int64     `gorm:"column:amount_step;type:bigint;not null;default:0" json:"amount_step"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Portal) TableName() string {
	return "pay_portal"
}

// OrderPrefix returns the prefix used when building order references.
func (p *Portal) OrderPrefix() string {
	if p.OrderIDPrefix != "" {
		return p.OrderIDPrefix
	}
	return p.CodeName
}
