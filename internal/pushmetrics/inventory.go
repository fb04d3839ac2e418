package pushmetrics

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// inventoryTables are the stored entities reported as gauges.
var inventoryTables = []string{"assets", "meters", "channels", "events", "data_series", "custom_fields"}

// Inventory reports how many rows each entity table holds.
type Inventory struct {
	rows   *prometheus.GaugeVec
	memory prometheus.Gauge
}

func NewInventory(registry *prometheus.Registry) *Inventory {
	rows := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pqio_stored_rows",
		Help: "Rows per entity table at the last refresh.",
	}, []string{"table"})
	memory := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pqio_process_memory_bytes",
		Help: "Memory obtained from the OS by the running process.",
	})
	if registry != nil {
		registry.MustRegister(rows, memory)
	}
	return &Inventory{rows: rows, memory: memory}
}

// Refresh recounts every table. Tables that fail to count keep their last value.
func (i *Inventory) Refresh(ctx context.Context, db *gorm.DB) {
	if i == nil {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	i.memory.Set(float64(m.Sys))

	if db == nil {
		return
	}
	for _, table := range inventoryTables {
		var count int64
		if err := db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
			continue
		}
		i.rows.WithLabelValues(table).Set(float64(count))
	}
}
