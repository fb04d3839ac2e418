package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Meter is a physical recording device. It has no natural key; duplicates
// are detected by comparing the optional fields.
type Meter struct {
	ID                  snowflake.ID `json:"id" gorm:"primaryKey"`
	DeviceName          string       `json:"device_name" gorm:"column:device_name;type:text;not null;index:ix_meters_device_name"`
	DeviceAlias         *string      `json:"device_alias,omitempty" gorm:"column:device_alias;type:text"`
	DeviceLocation      *string      `json:"device_location,omitempty" gorm:"column:device_location;type:text"`
	DeviceLocationAlias *string      `json:"device_location_alias,omitempty" gorm:"column:device_location_alias;type:text"`
	Latitude            *float64     `json:"latitude,omitempty" gorm:"column:latitude"`
	Longitude           *float64     `json:"longitude,omitempty" gorm:"column:longitude"`
	AccountName         *string      `json:"account_name,omitempty" gorm:"column:account_name;type:text"`
	AccountAlias        *string      `json:"account_alias,omitempty" gorm:"column:account_alias;type:text"`
	DistanceToXFMR      *float64     `json:"distance_to_xfmr,omitempty" gorm:"column:distance_to_xfmr"`
	ConnectionType      *int         `json:"connection_type,omitempty" gorm:"column:connection_type"`
	Owner               *string      `json:"owner,omitempty" gorm:"column:owner;type:text"`
	CreatedAt           time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Meter) TableName() string { return "meters" }
