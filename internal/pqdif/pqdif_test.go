package pqdif

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dump = `{
  "dataSources": [{
    "name": "Relay 7",
    "owner": "North Utility",
    "equipment": "SEL-735",
    "location": "Sub 12",
    "vendor": "SEL",
    "latitude": 4294967295,
    "longitude": 81,
    "channelDefinitions": [
      {"name": "V A", "quantityMeasured": 1, "phase": 1, "quantityTypeId": "67f6af80-f753-11cf-9d89-0080c72e70a3"},
      {"name": "I A", "quantityMeasured": 2, "phase": 1, "quantityTypeId": "67f6af82-f753-11cf-9d89-0080c72e70a3"}
    ]
  }],
  "observations": [{
    "name": "Fault 1",
    "startTime": "2020-03-18T10:00:00Z",
    "channelInstances": [{
      "channelDefinitionIndex": 0,
      "seriesInstances": [
        {"valueTypeId": "c690e872-f755-11cf-9d89-0080c72e70a3", "quantityUnits": 2, "values": [0, 0.0001, 0.0002]},
        {"valueTypeId": "67f6af97-f753-11cf-9d89-0080c72e70a3", "quantityUnits": 0, "values": [1, 2, 3]}
      ]
    }]
  }]
}`

func TestJSONDecoderReadsRecordTree(t *testing.T) {
	got, err := NewJSONDecoder().Decode(context.Background(), strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, got.DataSources, 1)
	require.Len(t, got.Observations, 1)

	ds := got.DataSources[0]
	assert.Equal(t, "Relay 7", ds.Name)
	assert.False(t, ds.HasLatitude())
	assert.True(t, ds.HasLongitude())
	assert.Equal(t, QuantityWaveForm, ds.ChannelDefinitions[0].QuantityTypeID)
	assert.Equal(t, QuantityCurrent, ds.ChannelDefinitions[1].QuantityMeasured)
}

func TestJSONDecoderRejectsGarbage(t *testing.T) {
	_, err := NewJSONDecoder().Decode(context.Background(), strings.NewReader("PQDIF\x00\x01"))
	assert.ErrorIs(t, err, pqerr.ErrParse)

	bad := strings.Replace(dump, `"channelDefinitionIndex": 0`, `"channelDefinitionIndex": 5`, 1)
	_, err = NewJSONDecoder().Decode(context.Background(), strings.NewReader(bad))
	assert.ErrorIs(t, err, pqerr.ErrParse)
}

func TestDecodeFileClassifiesDecoderErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pqd")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	failing := DecoderFunc(func(context.Context, io.Reader) (*Decoded, error) {
		return nil, errors.New("bad record header")
	})
	_, err := DecodeFile(context.Background(), failing, path)
	assert.ErrorIs(t, err, pqerr.ErrParse)

	empty := DecoderFunc(func(context.Context, io.Reader) (*Decoded, error) { return nil, nil })
	got, err := DecodeFile(context.Background(), empty, path)
	require.NoError(t, err)
	assert.Empty(t, got.Observations)
}

func TestSignalTypeOf(t *testing.T) {
	assert.Equal(t, channeldomain.PointOnWave, SignalTypeOf(QuantityWaveForm))
	assert.Equal(t, channeldomain.RMS, SignalTypeOf(QuantityPhasor))
	assert.Equal(t, channeldomain.SignalOther, SignalTypeOf(ValueTypeVal))
}

func TestMeasurementTypeOf(t *testing.T) {
	cases := []struct {
		q    QuantityMeasured
		p    Phase
		want channeldomain.MeasurementType
	}{
		{QuantityVoltage, PhaseAN, channeldomain.VoltageA},
		{QuantityVoltage, PhaseAB, channeldomain.VoltageA},
		{QuantityVoltage, PhaseBC, channeldomain.VoltageB},
		{QuantityVoltage, PhaseCA, channeldomain.VoltageC},
		{QuantityCurrent, PhaseBN, channeldomain.CurrentB},
		{QuantityCurrent, PhaseCN, channeldomain.CurrentC},
		{QuantityCurrent, PhaseResidual, channeldomain.Other},
		{QuantityVoltage, PhaseNG, channeldomain.Other},
		{QuantityNone, PhaseAN, channeldomain.Other},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MeasurementTypeOf(tc.q, tc.p), "%d/%d", tc.q, tc.p)
	}
}

func TestPOWPointsSecondsFromStart(t *testing.T) {
	d, err := NewJSONDecoder().Decode(context.Background(), strings.NewReader(dump))
	require.NoError(t, err)
	obs := d.Observations[0]

	s, err := POWPoints(obs, obs.ChannelInstances[0])
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.True(t, obs.StartTime.Add(200*time.Microsecond).Equal(s[2].Time))
	assert.Equal(t, 3.0, s[2].Value)
}

func TestPOWPointsAbsoluteTimestamps(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	inst := ChannelInstance{SeriesInstances: []SeriesInstance{
		{ValueTypeID: ValueTypeTime, QuantityUnits: UnitsTimestamp, Times: []time.Time{t0, t0.Add(time.Millisecond)}},
		{ValueTypeID: ValueTypeVal, Values: []float64{5, 6}},
	}}
	s, err := POWPoints(ObservationRecord{StartTime: t0.Add(time.Hour)}, inst)
	require.NoError(t, err)
	assert.True(t, t0.Add(time.Millisecond).Equal(s[1].Time))
}

func TestPOWPointsEmptyInstance(t *testing.T) {
	inst := ChannelInstance{SeriesInstances: []SeriesInstance{
		{ValueTypeID: ValueTypeTime, QuantityUnits: UnitsSeconds},
		{ValueTypeID: ValueTypeVal},
	}}
	s, err := POWPoints(ObservationRecord{}, inst)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestPOWPointsShapeErrors(t *testing.T) {
	timeAxis := SeriesInstance{ValueTypeID: ValueTypeTime, QuantityUnits: UnitsSeconds, Values: []float64{0, 1}}
	vals := SeriesInstance{ValueTypeID: ValueTypeVal, Values: []float64{1}}

	cases := map[string][]SeriesInstance{
		"length mismatch": {timeAxis, vals},
		"two time axes":   {timeAxis, timeAxis, vals},
		"no values":       {timeAxis},
	}
	for name, si := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := POWPoints(ObservationRecord{}, ChannelInstance{SeriesInstances: si})
			assert.ErrorIs(t, err, pqerr.ErrParse)
		})
	}
}
