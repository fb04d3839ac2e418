package pqdif

import (
	"time"

	"github.com/google/uuid"
)

// DataSourceRecord describes the recording device.
type DataSourceRecord struct {
	Name               string              `json:"name"`
	Owner              string              `json:"owner"`
	Equipment          string              `json:"equipment"`
	Location           string              `json:"location"`
	Vendor             string              `json:"vendor"`
	Latitude           uint32              `json:"latitude"`
	Longitude          uint32              `json:"longitude"`
	ChannelDefinitions []ChannelDefinition `json:"channelDefinitions"`
}

// HasLatitude reports whether the latitude is set; MaxUint32 marks it absent.
func (d DataSourceRecord) HasLatitude() bool { return d.Latitude < unset }

func (d DataSourceRecord) HasLongitude() bool { return d.Longitude < unset }

type ChannelDefinition struct {
	Name             string           `json:"name"`
	QuantityMeasured QuantityMeasured `json:"quantityMeasured"`
	Phase            Phase            `json:"phase"`
	QuantityTypeID   uuid.UUID        `json:"quantityTypeId"`
}

// ObservationRecord is one captured event.
type ObservationRecord struct {
	Name             string            `json:"name"`
	StartTime        time.Time         `json:"startTime"`
	ChannelInstances []ChannelInstance `json:"channelInstances"`
}

type ChannelInstance struct {
	ChannelDefinitionIndex int              `json:"channelDefinitionIndex"`
	SeriesInstances        []SeriesInstance `json:"seriesInstances"`
}

// SeriesInstance carries numeric Values, or absolute Times when the
// series is a time axis in Timestamp units.
type SeriesInstance struct {
	ValueTypeID   uuid.UUID     `json:"valueTypeId"`
	QuantityUnits QuantityUnits `json:"quantityUnits"`
	Values        []float64     `json:"values,omitempty"`
	Times         []time.Time   `json:"times,omitempty"`
}

// Len is the number of samples in whichever representation is populated.
func (s SeriesInstance) Len() int {
	if s.QuantityUnits == UnitsTimestamp {
		return len(s.Times)
	}
	return len(s.Values)
}

// Decoded is the record tree of one PQDIF file.
type Decoded struct {
	DataSources  []DataSourceRecord  `json:"dataSources"`
	Observations []ObservationRecord `json:"observations"`
}
