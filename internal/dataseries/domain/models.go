package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DataSeries links a channel and an event to one encoded series blob.
type DataSeries struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	ChannelID snowflake.ID `json:"channel_id" gorm:"column:channel_id;not null;index:ix_data_series_channel"`
	EventID   snowflake.ID `json:"event_id" gorm:"column:event_id;not null;index:ix_data_series_event"`
	Data      []byte       `json:"-" gorm:"column:data;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (DataSeries) TableName() string { return "data_series" }
