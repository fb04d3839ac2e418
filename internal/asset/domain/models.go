package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Asset is a logical point of measurement identified by a unique key.
type Asset struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	AssetKey         string       `json:"asset_key" gorm:"column:asset_key;type:text;not null;uniqueIndex:ux_assets_key"`
	AssetName        *string      `json:"asset_name,omitempty" gorm:"column:asset_name;type:text"`
	NominalVoltage   *float64     `json:"nominal_voltage,omitempty" gorm:"column:nominal_voltage"`
	NominalFrequency *float64     `json:"nominal_frequency,omitempty" gorm:"column:nominal_frequency"`
	UpstreamXFMR     *float64     `json:"upstream_xfmr_kva,omitempty" gorm:"column:upstream_xfmr_kva"`
	LineLength       *float64     `json:"line_length,omitempty" gorm:"column:line_length"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Asset) TableName() string { return "assets" }
