package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	"github.com/smallbiznis/pqio/internal/clock"
	"github.com/smallbiznis/pqio/internal/config"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	dataseriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	obscontext "github.com/smallbiznis/pqio/internal/observability/context"
	obslogger "github.com/smallbiznis/pqio/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pqio/internal/observability/metrics"
	"github.com/smallbiznis/pqio/internal/observability/tracing"
	"github.com/smallbiznis/pqio/internal/pqds"
	"github.com/smallbiznis/pqio/internal/pqerr"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	"github.com/smallbiznis/pqio/internal/series"
	settingdomain "github.com/smallbiznis/pqio/internal/setting/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const format = "pqds"

// Options selects the tag groups written to the data file. The audit log
// always receives every group.
type Options struct {
	Device              bool `json:"device"`
	Asset               bool `json:"asset"`
	Event               bool `json:"event"`
	Timing              bool `json:"timing"`
	WaveformSensitivity bool `json:"waveform_sensitivity"`
	Custom              bool `json:"custom"`
	Author              bool `json:"author"`
	// GUID writes EventGUID on its own when Event is off.
	GUID bool `json:"guid"`
}

// AllOptions turns every group on.
func AllOptions() Options {
	return Options{Device: true, Asset: true, Event: true, Timing: true, WaveformSensitivity: true, Custom: true, Author: true, GUID: true}
}

func OptionsFromProfile(p config.ExportProfile) Options {
	return Options{
		Device:              p.Device,
		Asset:               p.Asset,
		Event:               p.Event,
		Timing:              p.Timing,
		WaveformSensitivity: p.WaveformSensitivity,
		Custom:              p.Custom,
		Author:              p.Author,
		GUID:                p.GUID,
	}
}

// Request exports one (asset, event) pair. Empty Path writes into the
// profile output directory; a directory Path gets a generated file name.
// Nil Options use the export profile.
type Request struct {
	AssetID snowflake.ID
	EventID snowflake.ID
	Path    string
	LogPath string
	// Start overrides the declared start time of the data file.
	Start   *time.Time
	Options *Options
}

// ProgressFunc receives the running percentage: 25 once channels are
// loaded, 50 once tags are built, 100 once written.
type ProgressFunc func(percent int)

type Result struct {
	Path    string
	OK      bool
	Kind    pqerr.Kind
	Err     error
	Keys    []string
	AssetID snowflake.ID
	EventID snowflake.ID
}

type BatchResult struct {
	BatchID   string
	Succeeded int
	Files     []Result
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Assets       assetdomain.Repository
	Meters       meterdomain.Repository
	Channels     channeldomain.Repository
	Events       eventdomain.Repository
	Series       dataseriesdomain.Repository
	CustomFields customfielddomain.Repository
	Sensitivity  sensitivitydomain.Repository
	Settings     settingdomain.Service
	Profile      *config.ExportProfileHolder `optional:"true"`
	Metrics      *obsmetrics.Metrics         `optional:"true"`
	Pipeline     *obsmetrics.PipelineMetrics `optional:"true"`
}

// Exporter writes stored events back out as PQDS files.
type Exporter struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	assets       assetdomain.Repository
	meters       meterdomain.Repository
	channels     channeldomain.Repository
	events       eventdomain.Repository
	series       dataseriesdomain.Repository
	customFields customfielddomain.Repository
	sensitivity  sensitivitydomain.Repository
	settings     settingdomain.Service
	profile      *config.ExportProfileHolder
	metrics      *obsmetrics.Metrics
	pipeline     *obsmetrics.PipelineMetrics
}

func New(p Params) *Exporter {
	profile := p.Profile
	if profile == nil {
		profile = config.NewStaticExportProfileHolder(config.DefaultExportProfile())
	}
	return &Exporter{
		db:           p.DB,
		log:          p.Log.Named("exporter"),
		clock:        clock.OrSystem(p.Clock),
		assets:       p.Assets,
		meters:       p.Meters,
		channels:     p.Channels,
		events:       p.Events,
		series:       p.Series,
		customFields: p.CustomFields,
		sensitivity:  p.Sensitivity,
		settings:     p.Settings,
		profile:      profile,
		metrics:      p.Metrics,
		pipeline:     p.Pipeline,
	}
}

// Export writes one PQDS file and appends its audit log entry.
func (e *Exporter) Export(ctx context.Context, req Request, progress ProgressFunc) Result {
	return e.export(ctx, req, newTracker(progress))
}

// ExportFiles runs requests in order. A failing export never stops the batch.
func (e *Exporter) ExportFiles(ctx context.Context, reqs []Request, progress ProgressFunc) BatchResult {
	batchID := obscontext.BatchIDFromContext(ctx)
	if batchID == "" {
		batchID = obscontext.NewID()
		ctx = obscontext.WithBatchID(ctx, batchID)
	}
	e.pipeline.ObserveBatch(obsmetrics.PipelineExport, len(reqs))

	track := newTracker(progress)
	out := BatchResult{BatchID: batchID, Files: make([]Result, 0, len(reqs))}
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			out.Files = append(out.Files, Result{Path: req.Path, AssetID: req.AssetID, EventID: req.EventID, Kind: pqerr.KindOf(err), Err: err})
			continue
		}
		res := e.export(ctx, req, track)
		if res.OK {
			out.Succeeded++
		}
		out.Files = append(out.Files, res)
	}
	e.log.Info("export batch finished",
		zap.String("batch_id", batchID),
		zap.Int("files", len(reqs)),
		zap.Int("succeeded", out.Succeeded),
	)
	return out
}

func (e *Exporter) export(ctx context.Context, req Request, track *tracker) Result {
	started := time.Now()
	ctx, span := tracing.Start(ctx, "exporter.pqds",
		attribute.Int64("asset_id", req.AssetID.Int64()),
		attribute.Int64("event_id", req.EventID.Int64()),
	)

	res := Result{Path: req.Path, AssetID: req.AssetID, EventID: req.EventID}
	keys, path, err := e.run(ctx, req, track)
	res.Path, res.Keys = path, keys
	if err != nil {
		res.Err = err
		res.Kind = pqerr.KindOf(err)
	} else {
		res.OK = true
	}

	tracing.End(span, err)
	e.pipeline.ObserveFile(obsmetrics.PipelineExport, format, time.Since(started), err)
	e.metrics.RecordExport(ctx, string(res.Kind))

	log := obslogger.WithFile(obscontext.WithFile(ctx, res.Path), e.log, format).With(
		zap.Int64("asset_id", req.AssetID.Int64()),
		zap.Int64("event_id", req.EventID.Int64()),
	)
	if err != nil {
		log.Warn("export failed", zap.String("kind", string(res.Kind)), zap.Error(err))
	} else {
		log.Info("event exported", zap.Strings("keys", keys))
	}
	return res
}

// bundle is everything one export reads from the store.
type bundle struct {
	asset    *assetdomain.Asset
	event    *eventdomain.Event
	meter    *meterdomain.Meter
	channels []channeldomain.Channel
	data     map[string]series.Series
	keys     []string
	origin   time.Time
}

func (e *Exporter) run(ctx context.Context, req Request, track *tracker) ([]string, string, error) {
	db := e.db.WithContext(ctx)
	profile := e.profile.Get()
	opts := OptionsFromProfile(profile)
	if req.Options != nil {
		opts = *req.Options
	}

	b, err := e.load(ctx, db, req.AssetID, req.EventID)
	if err != nil {
		return nil, req.Path, err
	}
	track.add(25)

	start := b.origin
	if req.Start != nil {
		start = req.Start.UTC()
	}
	g, err := e.groups(ctx, db, b, start)
	if err != nil {
		return b.keys, req.Path, err
	}
	selected, full := g.selected(opts, b.event.GUID), g.all()
	track.add(25)

	path, err := e.outputPath(req.Path, profile.OutputDir, b)
	if err != nil {
		return b.keys, req.Path, err
	}
	f := &pqds.File{
		Tags:   selected,
		Start:  start,
		Origin: b.origin,
		Keys:   b.keys,
		Series: b.data,
	}
	if err := pqds.WriteFile(path, f); err != nil {
		return b.keys, path, fmt.Errorf("write %s: %w", path, err)
	}

	logPath := req.LogPath
	if logPath == "" {
		logPath = profile.LogPath
	}
	if err := pqds.AppendLog(logPath, e.clock.Now(), b.event.GUID, full, b.keys); err != nil {
		return b.keys, path, fmt.Errorf("append audit log %s: %w", logPath, err)
	}
	track.add(50)
	return b.keys, path, nil
}

func (e *Exporter) load(ctx context.Context, db *gorm.DB, assetID, eventID snowflake.ID) (*bundle, error) {
	asset, err := e.assets.FindByID(ctx, db, assetID)
	if err != nil {
		return nil, pqerr.Persistence("load asset", err)
	}
	if asset == nil {
		return nil, pqerr.Validationf("asset %d not found", assetID)
	}
	evt, err := e.events.FindByID(ctx, db, eventID)
	if err != nil {
		return nil, pqerr.Persistence("load event", err)
	}
	if evt == nil {
		return nil, pqerr.Validationf("event %d not found", eventID)
	}

	rows, err := e.series.ForEvent(ctx, db, eventID)
	if err != nil {
		return nil, pqerr.Persistence("load data series", err)
	}
	byChannel := make(map[snowflake.ID]dataseriesdomain.DataSeries, len(rows))
	ids := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		if _, ok := byChannel[row.ChannelID]; ok {
			continue
		}
		byChannel[row.ChannelID] = row
		ids = append(ids, row.ChannelID)
	}
	channels, err := e.channels.ListForAsset(ctx, db, assetID, ids)
	if err != nil {
		return nil, pqerr.Persistence("load channels", err)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: asset %d has no series for event %d", pqerr.ErrNoChannels, assetID, eventID)
	}

	meter, err := e.meters.FindByID(ctx, db, channels[0].MeterID)
	if err != nil {
		return nil, pqerr.Persistence("load meter", err)
	}
	if meter == nil {
		return nil, fmt.Errorf("%w: meter %d of channel %d", pqerr.ErrNoDevice, channels[0].MeterID, channels[0].ID)
	}

	b := &bundle{asset: asset, event: evt, meter: meter, channels: channels, data: map[string]series.Series{}}
	var earliest time.Time
	for _, ch := range channels {
		s, err := series.Decode(byChannel[ch.ID].Data)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch.ID, err)
		}
		if len(s) > 0 && (earliest.IsZero() || s[0].Time.Before(earliest)) {
			earliest = s[0].Time
		}
		key := string(ch.MeasurementType)
		if !ch.MeasurementType.Recognized() {
			continue
		}
		if _, dup := b.data[key]; dup {
			continue
		}
		b.data[key] = s
	}
	for _, key := range pqds.Measurements {
		if _, ok := b.data[key]; ok {
			b.keys = append(b.keys, key)
		}
	}

	b.origin = earliest
	if evt.EventTime != nil {
		b.origin = evt.EventTime.UTC()
	}
	return b, nil
}

// tagGroups holds every metadata group of one export in file order.
type tagGroups struct {
	author, device, asset, event, timing, sensitivity, custom []pqds.Tag
}

func (e *Exporter) groups(ctx context.Context, db *gorm.DB, b *bundle, start time.Time) (*tagGroups, error) {
	contact, err := e.settings.Contact(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := e.sensitivity.ForPair(ctx, db, b.asset.ID, b.event.ID)
	if err != nil {
		return nil, pqerr.Persistence("load data sensitivity", err)
	}
	custom, err := e.customFields.ForPair(ctx, db, b.asset.ID, b.event.ID)
	if err != nil {
		return nil, pqerr.Persistence("load custom fields", err)
	}
	code, note := sensitivitydomain.Summarize(rows)
	return &tagGroups{
		author:      authorTags(contact),
		device:      deviceTags(b.meter),
		asset:       assetTags(b.asset),
		event:       eventTags(b.event),
		timing:      pqds.TimingTags(start),
		sensitivity: sensitivityTags(code, note),
		custom:      customTags(custom),
	}, nil
}

// all is the set written to the audit log regardless of options.
func (g *tagGroups) all() []pqds.Tag {
	return concat(g.author, g.device, g.asset, g.event, g.timing, g.sensitivity, g.custom)
}

func (g *tagGroups) selected(opts Options, guid string) []pqds.Tag {
	pick := func(on bool, tags []pqds.Tag) []pqds.Tag {
		if on {
			return tags
		}
		return nil
	}
	out := concat(
		pick(opts.Author, g.author),
		pick(opts.Device, g.device),
		pick(opts.Asset, g.asset),
		pick(opts.Event, g.event),
		pick(opts.Timing, g.timing),
		pick(opts.WaveformSensitivity, g.sensitivity),
		pick(opts.Custom, g.custom),
	)
	if !opts.Event && opts.GUID && guid != "" {
		out = append(out, pqds.TextTag(pqds.KeyEventGUID, guid))
	}
	return out
}

func concat(groups ...[]pqds.Tag) []pqds.Tag {
	var out []pqds.Tag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// outputPath resolves the data file location. Directories, and paths
// ending in a separator, get "<asset-slug>-<event-guid>.csv".
func (e *Exporter) outputPath(path, defaultDir string, b *bundle) (string, error) {
	if path == "" {
		path = defaultDir
	}
	if path == "" {
		path = "."
	}
	if strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	} else if st, err := os.Stat(path); err != nil || !st.IsDir() {
		return path, nil
	}
	name := slug.Make(b.asset.AssetKey)
	if name == "" {
		name = "asset"
	}
	return filepath.Join(path, fmt.Sprintf("%s-%s.csv", name, b.event.GUID)), nil
}

type tracker struct {
	sum int
	fn  ProgressFunc
}

func newTracker(fn ProgressFunc) *tracker { return &tracker{fn: fn} }

func (t *tracker) add(n int) {
	t.sum += n
	if t.fn != nil {
		t.fn(t.sum)
	}
}
