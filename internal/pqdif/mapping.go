package pqdif

import (
	"time"

	"github.com/google/uuid"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/series"
)

// IsPOW reports a point-on-wave quantity type.
func IsPOW(quantityType uuid.UUID) bool { return quantityType == QuantityWaveForm }

// SignalTypeOf maps the quantity type GUID: phasor is RMS, waveform is point on wave.
func SignalTypeOf(quantityType uuid.UUID) channeldomain.SignalType {
	switch quantityType {
	case QuantityPhasor:
		return channeldomain.RMS
	case QuantityWaveForm:
		return channeldomain.PointOnWave
	default:
		return channeldomain.SignalOther
	}
}

// MeasurementTypeOf combines quantity and phase. Line-to-line phases count
// for their leading phase; neutral, residual and anything else is Other.
func MeasurementTypeOf(q QuantityMeasured, p Phase) channeldomain.MeasurementType {
	var phase byte
	switch p {
	case PhaseAN, PhaseAB:
		phase = 'a'
	case PhaseBN, PhaseBC:
		phase = 'b'
	case PhaseCN, PhaseCA:
		phase = 'c'
	default:
		return channeldomain.Other
	}
	switch q {
	case QuantityVoltage:
		return channeldomain.ParseMeasurementType("v" + string(phase))
	case QuantityCurrent:
		return channeldomain.ParseMeasurementType("i" + string(phase))
	default:
		return channeldomain.Other
	}
}

// POWPoints zips the single time series and the single value series of a
// point-on-wave channel instance. Seconds are offsets from the observation
// start; timestamps are absolute.
func POWPoints(obs ObservationRecord, inst ChannelInstance) (series.Series, error) {
	var timeAxis, values *SeriesInstance
	for i := range inst.SeriesInstances {
		si := &inst.SeriesInstances[i]
		switch si.ValueTypeID {
		case ValueTypeTime:
			if timeAxis != nil {
				return nil, pqerr.Parsef("channel instance %d has several time series", inst.ChannelDefinitionIndex)
			}
			timeAxis = si
		case ValueTypeVal:
			if values != nil {
				return nil, pqerr.Parsef("channel instance %d has several value series", inst.ChannelDefinitionIndex)
			}
			values = si
		}
	}
	if timeAxis == nil || values == nil {
		return nil, pqerr.Parsef("channel instance %d lacks a time or value series", inst.ChannelDefinitionIndex)
	}
	if timeAxis.Len() != len(values.Values) {
		return nil, pqerr.Parsef("channel instance %d: %d timestamps for %d values",
			inst.ChannelDefinitionIndex, timeAxis.Len(), len(values.Values))
	}

	out := make(series.Series, len(values.Values))
	for i, v := range values.Values {
		var at time.Time
		switch timeAxis.QuantityUnits {
		case UnitsSeconds:
			ticks := int64(timeAxis.Values[i] * 1e7)
			at = obs.StartTime.Add(time.Duration(ticks) * 100)
		case UnitsTimestamp:
			at = timeAxis.Times[i]
		default:
			return nil, pqerr.Parsef("channel instance %d: unsupported time units %d", inst.ChannelDefinitionIndex, timeAxis.QuantityUnits)
		}
		out[i] = series.Point{Time: at.UTC(), Value: v}
	}
	return out, nil
}
