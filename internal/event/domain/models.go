package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Event is one captured disturbance. Assets and meters are reached through
// the channels of its data series.
type Event struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	GUID      string       `json:"guid" gorm:"column:guid;type:varchar(36);not null;index:ix_events_guid"`
	Name      string       `json:"name" gorm:"column:name;type:text;not null"`
	EventTime *time.Time   `json:"event_time,omitempty" gorm:"column:event_time"`

	EventType       *int     `json:"event_type,omitempty" gorm:"column:event_type"`
	FaultType       *int     `json:"fault_type,omitempty" gorm:"column:fault_type"`
	PeakCurrent     *float64 `json:"peak_current,omitempty" gorm:"column:peak_current"`
	PeakVoltage     *float64 `json:"peak_voltage,omitempty" gorm:"column:peak_voltage"`
	MaxVA           *float64 `json:"max_va,omitempty" gorm:"column:max_va"`
	MaxVB           *float64 `json:"max_vb,omitempty" gorm:"column:max_vb"`
	MaxVC           *float64 `json:"max_vc,omitempty" gorm:"column:max_vc"`
	MinVA           *float64 `json:"min_va,omitempty" gorm:"column:min_va"`
	MinVB           *float64 `json:"min_vb,omitempty" gorm:"column:min_vb"`
	MinVC           *float64 `json:"min_vc,omitempty" gorm:"column:min_vc"`
	MaxIA           *float64 `json:"max_ia,omitempty" gorm:"column:max_ia"`
	MaxIB           *float64 `json:"max_ib,omitempty" gorm:"column:max_ib"`
	MaxIC           *float64 `json:"max_ic,omitempty" gorm:"column:max_ic"`
	PreEventCurrent *float64 `json:"pre_event_current,omitempty" gorm:"column:pre_event_current"`
	PreEventVoltage *float64 `json:"pre_event_voltage,omitempty" gorm:"column:pre_event_voltage"`
	Duration        *float64 `json:"duration,omitempty" gorm:"column:duration"`
	FaultI2T        *float64 `json:"fault_i2t,omitempty" gorm:"column:fault_i2t"`
	DistanceToFault *float64 `json:"distance_to_fault,omitempty" gorm:"column:distance_to_fault"`
	FaultCause      *int     `json:"fault_cause,omitempty" gorm:"column:fault_cause"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "events" }
