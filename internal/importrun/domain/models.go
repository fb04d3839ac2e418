package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ImportRun records the outcome of one import batch.
type ImportRun struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	BatchID    string         `json:"batch_id" gorm:"column:batch_id;type:varchar(26);not null;uniqueIndex:ux_import_runs_batch"`
	Format     string         `json:"format" gorm:"column:format;type:varchar(10);not null"`
	FileCount  int            `json:"file_count" gorm:"column:file_count;not null"`
	Succeeded  int            `json:"succeeded" gorm:"column:succeeded;not null"`
	Results    datatypes.JSON `json:"results" gorm:"column:results"`
	StartedAt  time.Time      `json:"started_at" gorm:"column:started_at;not null"`
	FinishedAt time.Time      `json:"finished_at" gorm:"column:finished_at;not null"`
}

// TableName sets the database table name.
func (ImportRun) TableName() string { return "import_runs" }
