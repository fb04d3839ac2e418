package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DataSensitivity classifies the data recorded for an asset and event.
type DataSensitivity struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	AssetID         snowflake.ID `json:"asset_id" gorm:"column:asset_id;not null;index:ix_data_sensitivity_pair,priority:1"`
	EventID         snowflake.ID `json:"event_id" gorm:"column:event_id;not null;index:ix_data_sensitivity_pair,priority:2"`
	DataSensitivity *int         `json:"data_sensitivity,omitempty" gorm:"column:code"`
	Note            *string      `json:"note,omitempty" gorm:"column:note;type:text"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (DataSensitivity) TableName() string { return "data_sensitivity" }
