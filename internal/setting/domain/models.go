package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Names of the author contact settings written as PQDS author tags.
const (
	ContactUtility = "contact.utility"
	ContactEmail   = "contact.email"
)

// Setting is a named store-wide value.
type Setting struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"column:name;type:varchar(100);not null;uniqueIndex:ux_settings_name"`
	Value     string       `json:"value" gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Setting) TableName() string { return "settings" }
