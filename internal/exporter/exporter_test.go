package exporter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	assetrepo "github.com/smallbiznis/pqio/internal/asset/repository"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	channelrepo "github.com/smallbiznis/pqio/internal/channel/repository"
	"github.com/smallbiznis/pqio/internal/clock"
	"github.com/smallbiznis/pqio/internal/config"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	customfieldrepo "github.com/smallbiznis/pqio/internal/customfield/repository"
	dataseriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	dataseriesrepo "github.com/smallbiznis/pqio/internal/dataseries/repository"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	eventrepo "github.com/smallbiznis/pqio/internal/event/repository"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	meterrepo "github.com/smallbiznis/pqio/internal/meter/repository"
	"github.com/smallbiznis/pqio/internal/pqds"
	"github.com/smallbiznis/pqio/internal/pqerr"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	sensitivityrepo "github.com/smallbiznis/pqio/internal/sensitivity/repository"
	"github.com/smallbiznis/pqio/internal/series"
	settingrepo "github.com/smallbiznis/pqio/internal/setting/repository"
	settingservice "github.com/smallbiznis/pqio/internal/setting/service"
	"github.com/smallbiznis/pqio/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const guid = "0f3c2b4e-9b7a-4c61-8f0e-3a1d2c4b5e6f"

var eventTime = time.Date(2020, 3, 18, 10, 0, 0, 0, time.UTC)

type fixture struct {
	conn    *gorm.DB
	exp     *Exporter
	node    *snowflake.Node
	asset   assetdomain.Asset
	meter   meterdomain.Meter
	event   eventdomain.Event
	logPath string
	outDir  string
}

// missingMeters hides every meter so a channel points at nothing.
type missingMeters struct {
	meterdomain.Repository
}

func (missingMeters) FindByID(context.Context, *gorm.DB, snowflake.ID) (*meterdomain.Meter, error) {
	return nil, nil
}

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T, meters meterdomain.Repository) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	if meters == nil {
		meters = meterrepo.Provide()
	}

	dir := t.TempDir()
	profile := config.DefaultExportProfile()
	profile.OutputDir = dir
	profile.LogPath = filepath.Join(dir, "export.log")

	settings := settingservice.New(settingservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  settingrepo.Provide(),
		Cfg:   config.Config{ContactUtility: "North Utility", ContactEmail: "pq@north.example"},
	})
	exp := New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		Clock:        clock.NewFakeClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
		Assets:       assetrepo.Provide(),
		Meters:       meters,
		Channels:     channelrepo.Provide(),
		Events:       eventrepo.Provide(),
		Series:       dataseriesrepo.Provide(),
		CustomFields: customfieldrepo.Provide(),
		Sensitivity:  sensitivityrepo.Provide(),
		Settings:     settings,
		Profile:      config.NewStaticExportProfileHolder(profile),
	})

	f := &fixture{conn: conn, exp: exp, node: node, logPath: profile.LogPath, outDir: dir}
	f.asset = assetdomain.Asset{ID: node.Generate(), AssetKey: "Feeder 1", NominalVoltage: ptr(7.2)}
	require.NoError(t, conn.Create(&f.asset).Error)
	f.meter = meterdomain.Meter{ID: node.Generate(), DeviceName: "Relay 7", DeviceLocation: ptr("Sub 12")}
	require.NoError(t, conn.Create(&f.meter).Error)
	f.event = eventdomain.Event{ID: node.Generate(), GUID: guid, Name: "Fault 1", EventTime: ptr(eventTime), EventType: ptr(3)}
	require.NoError(t, conn.Create(&f.event).Error)
	return f
}

func (f *fixture) channel(t *testing.T, m channeldomain.MeasurementType, assetID *snowflake.ID) channeldomain.Channel {
	t.Helper()
	ch := channeldomain.Channel{
		ID:              f.node.Generate(),
		MeterID:         f.meter.ID,
		AssetID:         assetID,
		MeasurementType: m,
		SignalType:      channeldomain.PointOnWave,
		Name:            m.Display(),
	}
	require.NoError(t, f.conn.Create(&ch).Error)
	return ch
}

func (f *fixture) series(t *testing.T, ch channeldomain.Channel, values ...float64) {
	t.Helper()
	s := make(series.Series, len(values))
	for i, v := range values {
		s[i] = series.Point{Time: eventTime.Add(time.Duration(i) * 200 * time.Microsecond), Value: v}
	}
	blob, err := series.Encode(s)
	require.NoError(t, err)
	require.NoError(t, f.conn.Create(&dataseriesdomain.DataSeries{
		ID: f.node.Generate(), ChannelID: ch.ID, EventID: f.event.ID, Data: blob,
	}).Error)
}

func (f *fixture) seedWaveforms(t *testing.T) {
	t.Helper()
	vb := f.channel(t, channeldomain.VoltageB, &f.asset.ID)
	va := f.channel(t, channeldomain.VoltageA, &f.asset.ID)
	f.series(t, vb, 2, 2.5, 3)
	f.series(t, va, 1, 1.5, 2)
}

func TestExportRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	f.seedWaveforms(t)
	require.NoError(t, f.conn.Create(&sensitivitydomain.DataSensitivity{
		ID: f.node.Generate(), AssetID: f.asset.ID, EventID: f.event.ID, DataSensitivity: ptr(2), Note: ptr("Internal"),
	}).Error)
	require.NoError(t, f.conn.Create(&customfielddomain.CustomField{
		ID: f.node.Generate(), AssetID: &f.asset.ID, EventID: &f.event.ID, Domain: "crew", Key: "size", Value: "4", Type: "N",
	}).Error)

	var progress []int
	res := f.exp.Export(context.Background(), Request{AssetID: f.asset.ID, EventID: f.event.ID}, func(p int) {
		progress = append(progress, p)
	})
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, []int{25, 50, 100}, progress)
	assert.Equal(t, filepath.Join(f.outDir, "feeder-1-"+guid+".csv"), res.Path)
	assert.Equal(t, []string{"va", "vb"}, res.Keys)

	got, err := pqds.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"va", "vb"}, got.Keys)
	assert.True(t, eventTime.Equal(got.Start))
	assert.Equal(t, "Feeder 1", *got.Text(pqds.KeyAssetName))
	assert.Equal(t, "Relay 7", *got.Text(pqds.KeyDeviceName))
	assert.Equal(t, guid, *got.Text(pqds.KeyEventGUID))
	assert.Equal(t, "North Utility", *got.Text(pqds.KeyUtility))
	assert.Equal(t, 2, *got.Int(pqds.KeyWaveFormSensitivityCode))
	assert.Equal(t, "internal", *got.Text(pqds.KeyWaveFormSensitivityNote))
	assert.Equal(t, 4.0, *got.Float("crew.size"))

	require.Len(t, got.Series["va"], 3)
	assert.InDelta(t, 1.5, got.Series["va"][1].Value, 1e-3)
	assert.InDelta(t, 3.0, got.Series["vb"][2].Value, 1e-3)
	assert.True(t, eventTime.Add(400*time.Microsecond).Equal(got.Series["vb"][2].Time))
}

func TestExportSkipsOtherAssetsAndUnknownChannels(t *testing.T) {
	f := newFixture(t, nil)
	other := assetdomain.Asset{ID: f.node.Generate(), AssetKey: "Feeder 2"}
	require.NoError(t, f.conn.Create(&other).Error)

	f.series(t, f.channel(t, channeldomain.CurrentA, &f.asset.ID), 10, 11)
	f.series(t, f.channel(t, channeldomain.Other, &f.asset.ID), 5, 5)
	f.series(t, f.channel(t, channeldomain.VoltageA, &other.ID), 1, 2)

	res := f.exp.Export(context.Background(), Request{AssetID: f.asset.ID, EventID: f.event.ID, Path: filepath.Join(f.outDir, "one.csv")}, nil)
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, []string{"ia"}, res.Keys)
}

func TestExportWithoutChannels(t *testing.T) {
	f := newFixture(t, nil)
	other := assetdomain.Asset{ID: f.node.Generate(), AssetKey: "Feeder 2"}
	require.NoError(t, f.conn.Create(&other).Error)
	f.series(t, f.channel(t, channeldomain.VoltageA, &other.ID), 1, 2)

	res := f.exp.Export(context.Background(), Request{AssetID: f.asset.ID, EventID: f.event.ID}, nil)
	assert.False(t, res.OK)
	assert.Equal(t, pqerr.KindNoChannels, res.Kind)
	assert.ErrorIs(t, res.Err, pqerr.ErrNoChannels)

	_, err := os.Stat(f.logPath)
	assert.True(t, os.IsNotExist(err), "failed export must not touch the audit log")
}

func TestExportWithoutDevice(t *testing.T) {
	f := newFixture(t, missingMeters{meterrepo.Provide()})
	f.seedWaveforms(t)

	res := f.exp.Export(context.Background(), Request{AssetID: f.asset.ID, EventID: f.event.ID}, nil)
	assert.False(t, res.OK)
	assert.Equal(t, pqerr.KindNoDevice, res.Kind)
}

func TestExportUnknownEvent(t *testing.T) {
	f := newFixture(t, nil)
	res := f.exp.Export(context.Background(), Request{AssetID: f.asset.ID, EventID: 42}, nil)
	assert.Equal(t, pqerr.KindValidation, res.Kind)
}

func TestExportOptionsSelectGroups(t *testing.T) {
	f := newFixture(t, nil)
	f.seedWaveforms(t)

	opts := Options{GUID: true}
	res := f.exp.Export(context.Background(), Request{
		AssetID: f.asset.ID, EventID: f.event.ID, Options: &opts,
		Path: filepath.Join(f.outDir, "guid-only.csv"),
	}, nil)
	require.True(t, res.OK, "%v", res.Err)

	got, err := pqds.ReadFile(res.Path)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, pqds.KeyEventGUID, got.Tags[0].Key)
	assert.Equal(t, guid, got.Tags[0].Value)

	// the audit log keeps every group
	log, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(log), pqds.KeyAssetName)
	assert.Contains(t, string(log), pqds.KeyDeviceName)
	assert.Contains(t, string(log), pqds.KeyEventYear)
}

func TestExportStartOverride(t *testing.T) {
	f := newFixture(t, nil)
	f.seedWaveforms(t)
	start := time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)

	res := f.exp.Export(context.Background(), Request{
		AssetID: f.asset.ID, EventID: f.event.ID, Start: &start,
		Path: filepath.Join(f.outDir, "shifted.csv"),
	}, nil)
	require.True(t, res.OK, "%v", res.Err)

	got, err := pqds.ReadFile(res.Path)
	require.NoError(t, err)
	assert.True(t, start.Equal(got.Start))
}

func TestExportAppendsAuditLog(t *testing.T) {
	f := newFixture(t, nil)
	f.seedWaveforms(t)
	ctx := context.Background()

	for _, name := range []string{"a.csv", "b.csv"} {
		res := f.exp.Export(ctx, Request{AssetID: f.asset.ID, EventID: f.event.ID, Path: filepath.Join(f.outDir, name)}, nil)
		require.True(t, res.OK, "%v", res.Err)
	}

	raw, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	log := string(raw)
	assert.Equal(t, 2, strings.Count(log, ","+guid+"\n"))
	assert.Equal(t, 2, strings.Count(log, pqds.DataHeader+",va,vb\n"))
	assert.Contains(t, log, "\n---")
	assert.True(t, strings.HasPrefix(log, `"`))
}

func TestExportFilesContinuesPastFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.seedWaveforms(t)

	var progress []int
	out := f.exp.ExportFiles(context.Background(), []Request{
		{AssetID: f.asset.ID, EventID: 42},
		{AssetID: f.asset.ID, EventID: f.event.ID},
	}, func(p int) { progress = append(progress, p) })

	assert.NotEmpty(t, out.BatchID)
	assert.Equal(t, 1, out.Succeeded)
	require.Len(t, out.Files, 2)
	assert.False(t, out.Files[0].OK)
	assert.True(t, out.Files[1].OK)
	assert.Equal(t, []int{25, 50, 100}, progress)
}

func TestExportFilesStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.seedWaveforms(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.exp.ExportFiles(ctx, []Request{{AssetID: f.asset.ID, EventID: f.event.ID}}, nil)
	require.Len(t, out.Files, 1)
	assert.Equal(t, pqerr.KindCanceled, out.Files[0].Kind)
}
