package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Placeholder values inserted when a domain is registered without any field.
const (
	PlaceholderKey   = "Key"
	PlaceholderValue = "Value"
	PlaceholderType  = "T"
)

// CustomField is a "<domain>.<key>" tag stored against an asset and event.
type CustomField struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	AssetID   *snowflake.ID `json:"asset_id,omitempty" gorm:"column:asset_id;index:ix_custom_fields_pair,priority:1"`
	EventID   *snowflake.ID `json:"event_id,omitempty" gorm:"column:event_id;index:ix_custom_fields_pair,priority:2"`
	Domain    string        `json:"domain" gorm:"column:domain;type:varchar(100);not null;index:ix_custom_fields_domain"`
	Key       string        `json:"key" gorm:"column:key;type:varchar(100);not null"`
	Value     string        `json:"value" gorm:"column:value;type:text;not null"`
	Type      string        `json:"type" gorm:"column:type;type:varchar(1);not null"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (CustomField) TableName() string { return "custom_fields" }
