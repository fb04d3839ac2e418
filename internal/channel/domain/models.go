package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MeasurementType is stored as the PQDS channel key.
type MeasurementType string

const (
	VoltageA  MeasurementType = "va"
	VoltageB  MeasurementType = "vb"
	VoltageC  MeasurementType = "vc"
	CurrentA  MeasurementType = "ia"
	CurrentB  MeasurementType = "ib"
	CurrentC  MeasurementType = "ic"
	Frequency MeasurementType = "f"
	Other     MeasurementType = "other"
)

// ParseMeasurementType maps a channel key to its type; unknown keys are Other.
func ParseMeasurementType(key string) MeasurementType {
	switch m := MeasurementType(key); m {
	case VoltageA, VoltageB, VoltageC, CurrentA, CurrentB, CurrentC, Frequency:
		return m
	default:
		return Other
	}
}

// Recognized reports whether the type has a PQDS data column.
func (m MeasurementType) Recognized() bool { return m != Other && ParseMeasurementType(string(m)) == m }

// Display is the human-readable channel name.
func (m MeasurementType) Display() string {
	switch m {
	case VoltageA:
		return "Voltage A"
	case VoltageB:
		return "Voltage B"
	case VoltageC:
		return "Voltage C"
	case CurrentA:
		return "Current A"
	case CurrentB:
		return "Current B"
	case CurrentC:
		return "Current C"
	case Frequency:
		return "Frequency"
	default:
		return "Other"
	}
}

// SignalType follows the WaveFormDataType enumeration.
type SignalType int

const (
	PointOnWave SignalType = 1
	RMS         SignalType = 2
	SignalOther SignalType = 3
)

func (s SignalType) String() string {
	switch s {
	case PointOnWave:
		return "point_on_wave"
	case RMS:
		return "rms"
	default:
		return "other"
	}
}

// Channel is one measured signal of a meter, optionally bound to an asset.
type Channel struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	MeterID         snowflake.ID    `json:"meter_id" gorm:"column:meter_id;not null;index:ix_channels_identity,priority:1"`
	AssetID         *snowflake.ID   `json:"asset_id,omitempty" gorm:"column:asset_id;index:ix_channels_identity,priority:2"`
	MeasurementType MeasurementType `json:"measurement_type" gorm:"column:measurement_type;type:varchar(8);not null;index:ix_channels_identity,priority:3"`
	SignalType      SignalType      `json:"signal_type" gorm:"column:signal_type;not null;index:ix_channels_identity,priority:4"`
	Name            string          `json:"name" gorm:"column:name;type:varchar(50)"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Channel) TableName() string { return "channels" }
