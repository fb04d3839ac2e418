package importer

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	assetrepo "github.com/smallbiznis/pqio/internal/asset/repository"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	channelrepo "github.com/smallbiznis/pqio/internal/channel/repository"
	"github.com/smallbiznis/pqio/internal/clock"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	customfieldrepo "github.com/smallbiznis/pqio/internal/customfield/repository"
	dataseriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	dataseriesrepo "github.com/smallbiznis/pqio/internal/dataseries/repository"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	eventrepo "github.com/smallbiznis/pqio/internal/event/repository"
	importrundomain "github.com/smallbiznis/pqio/internal/importrun/domain"
	importrunrepo "github.com/smallbiznis/pqio/internal/importrun/repository"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	meterrepo "github.com/smallbiznis/pqio/internal/meter/repository"
	"github.com/smallbiznis/pqio/internal/pqdif"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/resolver"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	sensitivityrepo "github.com/smallbiznis/pqio/internal/sensitivity/repository"
	"github.com/smallbiznis/pqio/internal/series"
	"github.com/smallbiznis/pqio/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type decoderMock struct {
	mock.Mock
}

func (m *decoderMock) Decode(ctx context.Context, r io.Reader) (*pqdif.Decoded, error) {
	args := m.Called(ctx, r)
	out, _ := args.Get(0).(*pqdif.Decoded)
	return out, args.Error(1)
}

func newImporter(t *testing.T, dec pqdif.Decoder) (*Importer, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	assets, meters, channels := assetrepo.Provide(), meterrepo.Provide(), channelrepo.Provide()
	res := resolver.New(resolver.Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Assets:   assets,
		Meters:   meters,
		Channels: channels,
	})
	if dec == nil {
		dec = pqdif.NewJSONDecoder()
	}
	imp := New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Resolver:     res,
		Events:       eventrepo.Provide(),
		Channels:     channels,
		Series:       dataseriesrepo.Provide(),
		CustomFields: customfieldrepo.Provide(),
		Sensitivity:  sensitivityrepo.Provide(),
		Runs:         importrunrepo.Provide(),
		Decoder:      dec,
	})
	return imp, conn
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func count(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

const feederPQDS = `DeviceName,"Relay 7"
DeviceLocation,"Sub 12"
AssetName,"Feeder 1"
NominalVoltage-LG,7.2
EventGUID,"0f3c2b4e-9b7a-4c61-8f0e-3a1d2c4b5e6f"
EventID,"Fault 1"
EventTypeCode,3
EventPeakCurrent,1200
EventYear,2020
EventMonth,3
EventDay,18
EventHour,10
WaveFormDataType,1
WaveFormSensitivityCode,2
WaveFormSensitivityNote,"Internal"
crew.shift,"night"
crew.size,4
waveform-data,va,vb,ia,xx
0,1,2,3,9
0.2,1.5,2.5,3.5,9
0.4,2,3,4,9
`

func TestImportPQDSCreatesRecords(t *testing.T) {
	imp, conn := newImporter(t, nil)
	path := writeFile(t, "a.csv", feederPQDS)

	res := imp.ImportPQDS(context.Background(), path, nil)
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, Counts{Assets: 1, Meters: 1, Channels: 3, Events: 1, Series: 3}, res.Created)

	var asset assetdomain.Asset
	require.NoError(t, conn.First(&asset).Error)
	assert.Equal(t, "Feeder 1", asset.AssetKey)
	require.NotNil(t, asset.NominalVoltage)
	assert.Equal(t, 7.2, *asset.NominalVoltage)

	var meter meterdomain.Meter
	require.NoError(t, conn.First(&meter).Error)
	assert.Equal(t, "Relay 7", meter.DeviceName)
	assert.Equal(t, "Sub 12", *meter.DeviceLocation)

	var evt eventdomain.Event
	require.NoError(t, conn.First(&evt).Error)
	assert.Equal(t, "0f3c2b4e-9b7a-4c61-8f0e-3a1d2c4b5e6f", evt.GUID)
	assert.Equal(t, "Fault 1", evt.Name)
	require.NotNil(t, evt.EventTime)
	assert.True(t, evt.EventTime.Equal(time.Date(2020, 3, 18, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, *evt.EventType)
	assert.Equal(t, 1200.0, *evt.PeakCurrent)

	var channels []channeldomain.Channel
	require.NoError(t, conn.Order("measurement_type").Find(&channels).Error)
	require.Len(t, channels, 3)
	assert.Equal(t, channeldomain.CurrentA, channels[0].MeasurementType)
	assert.Equal(t, "Current A", channels[0].Name)
	for _, ch := range channels {
		assert.Equal(t, channeldomain.PointOnWave, ch.SignalType)
		require.NotNil(t, ch.AssetID)
		assert.Equal(t, asset.ID, *ch.AssetID)
		assert.Equal(t, meter.ID, ch.MeterID)
	}

	var rows []dataseriesdomain.DataSeries
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 3)
	s, err := series.Decode(rows[0].Data)
	require.NoError(t, err)
	assert.Len(t, s, 3)

	var sens sensitivitydomain.DataSensitivity
	require.NoError(t, conn.First(&sens).Error)
	assert.Equal(t, 2, *sens.DataSensitivity)
	assert.Equal(t, "Internal", *sens.Note)

	var fields []customfielddomain.CustomField
	require.NoError(t, conn.Order("key").Find(&fields).Error)
	require.Len(t, fields, 2)
	assert.Equal(t, "crew", fields[0].Domain)
	assert.Equal(t, "shift", fields[0].Key)
	assert.Equal(t, "night", fields[0].Value)
	assert.Equal(t, "T", fields[0].Type)
	assert.Equal(t, "size", fields[1].Key)
	assert.Equal(t, "N", fields[1].Type)
}

func TestImportPQDSTwiceKeepsOneAsset(t *testing.T) {
	imp, conn := newImporter(t, nil)
	path := writeFile(t, "a.csv", feederPQDS)

	first := imp.ImportPQDS(context.Background(), path, nil)
	require.True(t, first.OK)
	var before assetdomain.Asset
	require.NoError(t, conn.First(&before).Error)

	second := imp.ImportPQDS(context.Background(), path, nil)
	require.True(t, second.OK, "%v", second.Err)
	assert.Equal(t, Counts{Events: 1, Series: 3}, second.Created)

	assert.EqualValues(t, 1, count(t, conn, &assetdomain.Asset{}))
	assert.EqualValues(t, 1, count(t, conn, &meterdomain.Meter{}))
	assert.EqualValues(t, 3, count(t, conn, &channeldomain.Channel{}))
	assert.EqualValues(t, 2, count(t, conn, &eventdomain.Event{}))
	assert.EqualValues(t, 6, count(t, conn, &dataseriesdomain.DataSeries{}))

	var after assetdomain.Asset
	require.NoError(t, conn.First(&after).Error)
	assert.Equal(t, before.AssetKey, after.AssetKey)
	assert.Equal(t, *before.NominalVoltage, *after.NominalVoltage)
}

func TestImportPQDSWithoutNamesUsesFreeDefaults(t *testing.T) {
	imp, conn := newImporter(t, nil)
	path := writeFile(t, "bare.csv", "waveform-data,va\n0,1\n1,2\n")

	for n := 0; n < 2; n++ {
		res := imp.ImportPQDS(context.Background(), path, nil)
		require.True(t, res.OK, "%v", res.Err)
	}

	var keys []string
	require.NoError(t, conn.Model(&assetdomain.Asset{}).Order("asset_key").Pluck("asset_key", &keys).Error)
	assert.Equal(t, []string{DefaultPQDSName, DefaultPQDSName + " 1"}, keys)

	var meters []meterdomain.Meter
	require.NoError(t, conn.Find(&meters).Error)
	require.Len(t, meters, 1)
	assert.Equal(t, DefaultPQDSName, meters[0].DeviceName)

	var evt eventdomain.Event
	require.NoError(t, conn.First(&evt).Error)
	assert.Equal(t, DefaultPQDSName, evt.Name)
	assert.Len(t, evt.GUID, 36)
	assert.Nil(t, evt.EventTime)
	assert.EqualValues(t, 0, count(t, conn, &sensitivitydomain.DataSensitivity{}))
}

func TestImportPQDSMergesMeterMissingLatitude(t *testing.T) {
	imp, conn := newImporter(t, nil)
	bare := writeFile(t, "a.csv", "DeviceName,\"M1\"\nwaveform-data,va\n0,1\n")
	located := writeFile(t, "b.csv", "DeviceName,\"M1\"\nLatitude,40\nwaveform-data,va\n0,1\n")

	require.True(t, imp.ImportPQDS(context.Background(), bare, nil).OK)
	res := imp.ImportPQDS(context.Background(), located, nil)
	require.True(t, res.OK)
	assert.Equal(t, 0, res.Created.Meters)

	var meters []meterdomain.Meter
	require.NoError(t, conn.Find(&meters).Error)
	require.Len(t, meters, 1)
	require.NotNil(t, meters[0].Latitude)
	assert.Equal(t, 40.0, *meters[0].Latitude)
}

func TestImportPQDSSignalTypeFromTag(t *testing.T) {
	imp, conn := newImporter(t, nil)
	path := writeFile(t, "rms.csv", "WaveFormDataType,2\nwaveform-data,f\n0,60\n")

	require.True(t, imp.ImportPQDS(context.Background(), path, nil).OK)
	var ch channeldomain.Channel
	require.NoError(t, conn.First(&ch).Error)
	assert.Equal(t, channeldomain.RMS, ch.SignalType)
	assert.Equal(t, channeldomain.Frequency, ch.MeasurementType)
}

func TestImportPQDSMalformed(t *testing.T) {
	imp, conn := newImporter(t, nil)
	path := writeFile(t, "bad.csv", "DeviceName,\"x\"\n0,1\n")

	res := imp.ImportPQDS(context.Background(), path, nil)
	assert.False(t, res.OK)
	assert.Equal(t, pqerr.KindParse, res.Kind)
	assert.Equal(t, StageParse, res.Stage)
	assert.EqualValues(t, 0, count(t, conn, &assetdomain.Asset{}))

	missing := imp.ImportPQDS(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), nil)
	assert.Equal(t, pqerr.KindParse, missing.Kind)
}

func TestImportLogsCarryFileFields(t *testing.T) {
	imp, _ := newImporter(t, nil)
	core, logs := observer.New(zap.InfoLevel)
	imp.log = zap.New(core)
	path := writeFile(t, "bad.csv", "DeviceName,\"x\"\n0,1\n")

	imp.ImportPQDS(context.Background(), path, nil)

	entries := logs.FilterMessage("file import failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, path, fields["path"])
	assert.Equal(t, FormatPQDS, fields["format"])
	assert.Equal(t, string(StageParse), fields["stage"])
	assert.Equal(t, string(pqerr.KindParse), fields["kind"])
}

func powDefinition(name string, q pqdif.QuantityMeasured, p pqdif.Phase) pqdif.ChannelDefinition {
	return pqdif.ChannelDefinition{Name: name, QuantityMeasured: q, Phase: p, QuantityTypeID: pqdif.QuantityWaveForm}
}

func powInstance(idx int, values ...float64) pqdif.ChannelInstance {
	offsets := make([]float64, len(values))
	for i := range offsets {
		offsets[i] = float64(i) * 0.001
	}
	return pqdif.ChannelInstance{
		ChannelDefinitionIndex: idx,
		SeriesInstances: []pqdif.SeriesInstance{
			{ValueTypeID: pqdif.ValueTypeTime, QuantityUnits: pqdif.UnitsSeconds, Values: offsets},
			{ValueTypeID: pqdif.ValueTypeVal, Values: values},
		},
	}
}

var obsStart = time.Date(2020, 3, 18, 10, 0, 0, 0, time.UTC)

func decodedWith(defs []pqdif.ChannelDefinition, obs ...pqdif.ObservationRecord) *pqdif.Decoded {
	return &pqdif.Decoded{
		DataSources: []pqdif.DataSourceRecord{{
			Name:               "Relay 7",
			Equipment:          "SEL-735",
			Vendor:             "SEL",
			Latitude:           0xFFFFFFFF,
			Longitude:          81,
			ChannelDefinitions: defs,
		}},
		Observations: obs,
	}
}

func importDecoded(t *testing.T, d *pqdif.Decoded) (FileResult, *gorm.DB) {
	t.Helper()
	dec := new(decoderMock)
	dec.On("Decode", mock.Anything, mock.Anything).Return(d, nil)
	imp, conn := newImporter(t, dec)
	path := writeFile(t, "a.pqd", "PQDIF")
	return imp.ImportPQDIF(context.Background(), path, nil), conn
}

func TestImportPQDIFPrunesEmptyChannelsAndEvents(t *testing.T) {
	d := decodedWith(
		[]pqdif.ChannelDefinition{
			powDefinition("V A", pqdif.QuantityVoltage, pqdif.PhaseAN),
			powDefinition("I A", pqdif.QuantityCurrent, pqdif.PhaseAN),
		},
		pqdif.ObservationRecord{
			Name:      "Fault 1",
			StartTime: obsStart,
			ChannelInstances: []pqdif.ChannelInstance{
				powInstance(0, 1, 2, 3),
				powInstance(1),
			},
		},
		pqdif.ObservationRecord{
			Name:             "Empty",
			StartTime:        obsStart.Add(time.Minute),
			ChannelInstances: []pqdif.ChannelInstance{powInstance(1)},
		},
	)
	res, conn := importDecoded(t, d)
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, Counts{Meters: 1, Channels: 1, Events: 1, Series: 1, Pruned: 2}, res.Created)

	var channels []channeldomain.Channel
	require.NoError(t, conn.Find(&channels).Error)
	require.Len(t, channels, 1)
	assert.Equal(t, channeldomain.VoltageA, channels[0].MeasurementType)
	assert.Equal(t, "V A", channels[0].Name)
	assert.Nil(t, channels[0].AssetID)

	var events []eventdomain.Event
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "Fault 1", events[0].Name)
	assert.True(t, events[0].EventTime.Equal(obsStart))

	var meter meterdomain.Meter
	require.NoError(t, conn.First(&meter).Error)
	assert.Equal(t, "Relay 7", meter.DeviceName)
	assert.Equal(t, "SEL-735", *meter.DeviceAlias)
	assert.Equal(t, "SEL", *meter.AccountName)
	assert.Nil(t, meter.Latitude)
	assert.Equal(t, 81.0, *meter.Longitude)

	var row dataseriesdomain.DataSeries
	require.NoError(t, conn.First(&row).Error)
	s, err := series.Decode(row.Data)
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.True(t, s[1].Time.Equal(obsStart.Add(time.Millisecond)))
}

func TestImportPQDIFAttachesThreePhaseAsset(t *testing.T) {
	defs := []pqdif.ChannelDefinition{
		powDefinition("VA", pqdif.QuantityVoltage, pqdif.PhaseAN),
		powDefinition("VB", pqdif.QuantityVoltage, pqdif.PhaseBN),
		powDefinition("VC", pqdif.QuantityVoltage, pqdif.PhaseCN),
		powDefinition("IA", pqdif.QuantityCurrent, pqdif.PhaseAN),
		powDefinition("IB", pqdif.QuantityCurrent, pqdif.PhaseBN),
		powDefinition("IC", pqdif.QuantityCurrent, pqdif.PhaseCN),
	}
	obs := pqdif.ObservationRecord{Name: "Fault", StartTime: obsStart}
	for i := range defs {
		obs.ChannelInstances = append(obs.ChannelInstances, powInstance(i, 1, 2))
	}

	res, conn := importDecoded(t, decodedWith(defs, obs))
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, 1, res.Created.Assets)

	var asset assetdomain.Asset
	require.NoError(t, conn.First(&asset).Error)
	assert.Equal(t, "Asset 1 (SEL)", asset.AssetKey)

	var attached int64
	require.NoError(t, conn.Model(&channeldomain.Channel{}).Where("asset_id = ?", asset.ID).Count(&attached).Error)
	assert.EqualValues(t, 6, attached)
}

func TestImportPQDIFAttachesOnlyVoltageWhenCurrentsIncomplete(t *testing.T) {
	defs := []pqdif.ChannelDefinition{
		powDefinition("VA", pqdif.QuantityVoltage, pqdif.PhaseAN),
		powDefinition("VB", pqdif.QuantityVoltage, pqdif.PhaseBN),
		powDefinition("VC", pqdif.QuantityVoltage, pqdif.PhaseCN),
		powDefinition("IA", pqdif.QuantityCurrent, pqdif.PhaseAN),
		powDefinition("IB", pqdif.QuantityCurrent, pqdif.PhaseBN),
	}
	obs := pqdif.ObservationRecord{Name: "Fault", StartTime: obsStart}
	for i := range defs {
		obs.ChannelInstances = append(obs.ChannelInstances, powInstance(i, 1, 2))
	}

	res, conn := importDecoded(t, decodedWith(defs, obs))
	require.True(t, res.OK, "%v", res.Err)

	var withAsset []channeldomain.Channel
	require.NoError(t, conn.Where("asset_id IS NOT NULL").Order("measurement_type").Find(&withAsset).Error)
	require.Len(t, withAsset, 3)
	for _, ch := range withAsset {
		assert.Contains(t, []channeldomain.MeasurementType{channeldomain.VoltageA, channeldomain.VoltageB, channeldomain.VoltageC}, ch.MeasurementType)
	}
}

func TestImportPQDIFNoObservationsIsNoop(t *testing.T) {
	res, conn := importDecoded(t, decodedWith([]pqdif.ChannelDefinition{
		powDefinition("VA", pqdif.QuantityVoltage, pqdif.PhaseAN),
	}))
	assert.True(t, res.OK)
	assert.Equal(t, Counts{}, res.Created)
	assert.EqualValues(t, 0, count(t, conn, &meterdomain.Meter{}))
}

func TestImportPQDIFRollsBackOnBadSeries(t *testing.T) {
	bad := powInstance(0, 1, 2, 3)
	bad.SeriesInstances[0].Values = bad.SeriesInstances[0].Values[:2]
	d := decodedWith(
		[]pqdif.ChannelDefinition{powDefinition("VA", pqdif.QuantityVoltage, pqdif.PhaseAN)},
		pqdif.ObservationRecord{Name: "Fault", StartTime: obsStart, ChannelInstances: []pqdif.ChannelInstance{bad}},
	)
	res, conn := importDecoded(t, d)
	assert.False(t, res.OK)
	assert.Equal(t, pqerr.KindParse, res.Kind)
	assert.Equal(t, StagePersist, res.Stage)
	assert.EqualValues(t, 0, count(t, conn, &meterdomain.Meter{}))
	assert.EqualValues(t, 0, count(t, conn, &channeldomain.Channel{}))
	assert.EqualValues(t, 0, count(t, conn, &eventdomain.Event{}))
}

func TestBatchContinuesPastMalformedFile(t *testing.T) {
	imp, conn := newImporter(t, nil)
	paths := []string{
		writeFile(t, "1.csv", "DeviceName,\"A\"\nwaveform-data,va\n0,1\n"),
		writeFile(t, "2.csv", "waveform-data,va\nnot-a-number,1\n"),
		writeFile(t, "3.csv", "DeviceName,\"B\"\nwaveform-data,ia\n0,1\n"),
	}

	var progress []int
	out := imp.ImportPQDSFiles(context.Background(), paths, func(p int) { progress = append(progress, p) })
	assert.Equal(t, 2, out.Succeeded)
	require.Len(t, out.Files, 3)
	assert.True(t, out.Files[0].OK)
	assert.False(t, out.Files[1].OK)
	assert.Equal(t, pqerr.KindParse, out.Files[1].Kind)
	assert.True(t, out.Files[2].OK)
	assert.Equal(t, []int{50, 100, 150, 200}, progress)
	assert.Len(t, out.BatchID, 26)

	var run importrundomain.ImportRun
	require.NoError(t, conn.First(&run).Error)
	assert.Equal(t, out.BatchID, run.BatchID)
	assert.Equal(t, FormatPQDS, run.Format)
	assert.Equal(t, 3, run.FileCount)
	assert.Equal(t, 2, run.Succeeded)

	var entries []runEntry
	require.NoError(t, json.Unmarshal(run.Results, &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "parse", entries[1].Kind)
	assert.NotEmpty(t, entries[1].Error)
}

func TestBatchStopsStartingFilesAfterCancel(t *testing.T) {
	imp, conn := newImporter(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := imp.ImportPQDSFiles(ctx, []string{writeFile(t, "1.csv", "waveform-data,va\n0,1\n")}, nil)
	assert.Equal(t, 0, out.Succeeded)
	assert.Equal(t, pqerr.KindCanceled, out.Files[0].Kind)
	assert.EqualValues(t, 0, count(t, conn, &assetdomain.Asset{}))
	assert.EqualValues(t, 1, count(t, conn, &importrundomain.ImportRun{}))
}

func TestStartReportsProgressAndResult(t *testing.T) {
	imp, _ := newImporter(t, nil)
	paths := []string{
		writeFile(t, "1.csv", "waveform-data,va\n0,1\n"),
		writeFile(t, "2.csv", "waveform-data,vb\n0,1\n"),
	}

	job := imp.Start(context.Background(), Request{Format: FormatPQDS, Paths: paths})
	var seen []int
	for p := range job.Progress() {
		seen = append(seen, p)
	}
	out := job.Wait()
	assert.Equal(t, job.BatchID, out.BatchID)
	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, []int{50, 100, 150, 200}, seen)
}

func TestStartRejectsUnknownFormat(t *testing.T) {
	imp, _ := newImporter(t, nil)
	out := imp.Start(context.Background(), Request{Format: "comtrade", Paths: []string{"a"}}).Wait()
	require.Len(t, out.Files, 1)
	assert.Equal(t, pqerr.KindValidation, out.Files[0].Kind)
}
