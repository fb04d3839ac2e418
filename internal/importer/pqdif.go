package importer

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	dataseriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	obscontext "github.com/smallbiznis/pqio/internal/observability/context"
	obslogger "github.com/smallbiznis/pqio/internal/observability/logger"
	"github.com/smallbiznis/pqio/internal/observability/tracing"
	"github.com/smallbiznis/pqio/internal/pqdif"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportPQDIF loads one PQDIF file inside a single transaction. Files with
// no observation, or with other than one data source, succeed without
// writing anything.
func (i *Importer) ImportPQDIF(ctx context.Context, path string, progress ProgressFunc) FileResult {
	return i.importPQDIF(ctx, path, newTracker(progress))
}

func (i *Importer) importPQDIF(ctx context.Context, path string, track *tracker) FileResult {
	ctx = obscontext.WithFile(ctx, path)
	ctx, span := tracing.Start(ctx, "importer.pqdif", attribute.String("format", FormatPQDIF))
	run := newFileRun(path, i.clock.Now())

	res := func() FileResult {
		decoded, err := pqdif.DecodeFile(ctx, i.decoder, path)
		if err != nil {
			return run.fail(asParseError(err))
		}
		track.add(50)

		if len(decoded.Observations) == 0 || len(decoded.DataSources) != 1 {
			obslogger.WithFile(ctx, i.log, FormatPQDIF).Info("nothing to import",
				zap.Int("observations", len(decoded.Observations)),
				zap.Int("data_sources", len(decoded.DataSources)),
			)
			return run.succeed()
		}

		err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return i.persistPQDIF(ctx, tx, decoded, run)
		})
		if err != nil {
			return run.fail(pqerr.Persistence("pqdif transaction", err))
		}
		track.add(50)
		return run.succeed()
	}()

	tracing.End(span, res.Err)
	return i.finish(ctx, FormatPQDIF, run, res)
}

func (i *Importer) persistPQDIF(ctx context.Context, tx *gorm.DB, decoded *pqdif.Decoded, run *fileRun) error {
	counts := &run.result.Created
	source := decoded.DataSources[0]
	now := i.clock.Now()

	run.enter(StageResolve)
	meter, outcome, err := i.resolver.ResolveMeter(ctx, tx, meterFromDataSource(source))
	if err != nil {
		return err
	}
	counts.Meters += created(outcome)

	run.enter(StagePersist)
	channels := make([]*channeldomain.Channel, len(source.ChannelDefinitions))
	for idx, def := range source.ChannelDefinitions {
		ch := &channeldomain.Channel{
			ID:              i.genID.Generate(),
			MeterID:         meter.ID,
			MeasurementType: pqdif.MeasurementTypeOf(def.QuantityMeasured, def.Phase),
			SignalType:      pqdif.SignalTypeOf(def.QuantityTypeID),
			Name:            truncate(def.Name, 50),
			CreatedAt:       now,
		}
		if err := i.channels.Insert(ctx, tx, ch); err != nil {
			return pqerr.Persistence("insert channel", err)
		}
		channels[idx] = ch
		counts.Channels++
	}

	events := make([]*eventdomain.Event, 0, len(decoded.Observations))
	for _, obs := range decoded.Observations {
		start := obs.StartTime.UTC()
		evt := &eventdomain.Event{
			ID:        i.genID.Generate(),
			GUID:      uuid.NewString(),
			Name:      obs.Name,
			EventTime: &start,
			CreatedAt: now,
		}
		if err := i.events.Insert(ctx, tx, evt); err != nil {
			return pqerr.Persistence("insert event", err)
		}
		events = append(events, evt)
		counts.Events++

		for _, inst := range obs.ChannelInstances {
			def := source.ChannelDefinitions[inst.ChannelDefinitionIndex]
			if !pqdif.IsPOW(def.QuantityTypeID) {
				continue
			}
			points, err := pqdif.POWPoints(obs, inst)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				continue
			}
			ch := channels[inst.ChannelDefinitionIndex]
			id := i.genID.Generate()
			blob, err := i.encode(ctx, string(ch.MeasurementType), points, int32(id.Int64()))
			if err != nil {
				return err
			}
			if err := i.series.Insert(ctx, tx, &dataseriesdomain.DataSeries{
				ID:        id,
				ChannelID: ch.ID,
				EventID:   evt.ID,
				Data:      blob,
				CreatedAt: now,
			}); err != nil {
				return pqerr.Persistence("insert data series", err)
			}
			counts.Series++
		}
	}

	run.enter(StageCleanup)
	kept, err := i.pruneChannels(ctx, tx, channels, counts)
	if err != nil {
		return err
	}
	if err := i.pruneEvents(ctx, tx, events, counts); err != nil {
		return err
	}
	return i.attachAsset(ctx, tx, kept, source, counts)
}

func (i *Importer) pruneChannels(ctx context.Context, tx *gorm.DB, channels []*channeldomain.Channel, counts *Counts) ([]*channeldomain.Channel, error) {
	kept := channels[:0:0]
	for _, ch := range channels {
		n, err := i.series.CountByChannel(ctx, tx, ch.ID)
		if err != nil {
			return nil, pqerr.Persistence("count channel series", err)
		}
		if n > 0 {
			kept = append(kept, ch)
			continue
		}
		if err := i.channels.Delete(ctx, tx, ch.ID); err != nil {
			return nil, pqerr.Persistence("delete channel", err)
		}
		counts.Channels--
		counts.Pruned++
	}
	return kept, nil
}

func (i *Importer) pruneEvents(ctx context.Context, tx *gorm.DB, events []*eventdomain.Event, counts *Counts) error {
	for _, evt := range events {
		n, err := i.series.CountByEvent(ctx, tx, evt.ID)
		if err != nil {
			return pqerr.Persistence("count event series", err)
		}
		if n > 0 {
			continue
		}
		if err := i.events.Delete(ctx, tx, evt.ID); err != nil {
			return pqerr.Persistence("delete event", err)
		}
		counts.Events--
		counts.Pruned++
	}
	return nil
}

// attachAsset binds the surviving channels to a generated asset when the
// file holds exactly one voltage channel per phase. Current channels follow
// only when they are also exactly one per phase.
func (i *Importer) attachAsset(ctx context.Context, tx *gorm.DB, channels []*channeldomain.Channel, source pqdif.DataSourceRecord, counts *Counts) error {
	byType := make(map[channeldomain.MeasurementType][]*channeldomain.Channel)
	for _, ch := range channels {
		byType[ch.MeasurementType] = append(byType[ch.MeasurementType], ch)
	}
	onePerPhase := func(types ...channeldomain.MeasurementType) bool {
		for _, t := range types {
			if len(byType[t]) != 1 {
				return false
			}
		}
		return true
	}
	voltage := []channeldomain.MeasurementType{channeldomain.VoltageA, channeldomain.VoltageB, channeldomain.VoltageC}
	current := []channeldomain.MeasurementType{channeldomain.CurrentA, channeldomain.CurrentB, channeldomain.CurrentC}
	if !onePerPhase(voltage...) {
		return nil
	}

	key, err := i.resolver.FreeName(ctx, tx, fmt.Sprintf("Asset 1 (%s)", source.Vendor))
	if err != nil {
		return err
	}
	name := key
	asset, outcome, err := i.resolver.ResolveAsset(ctx, tx, &assetdomain.Asset{AssetKey: key, AssetName: &name})
	if err != nil {
		return err
	}
	counts.Assets += created(outcome)

	attach := voltage
	if onePerPhase(current...) {
		attach = append(attach, current...)
	}
	for _, t := range attach {
		ch := byType[t][0]
		ch.AssetID = ptrID(asset.ID)
		if err := i.channels.Update(ctx, tx, ch); err != nil {
			return pqerr.Persistence("attach channel", err)
		}
	}
	return nil
}

// meterFromDataSource maps the data source record. Latitude and longitude
// of MaxUint32 mean absent.
func meterFromDataSource(src pqdif.DataSourceRecord) *meterdomain.Meter {
	m := &meterdomain.Meter{
		DeviceName:     src.Name,
		Owner:          optString(src.Owner),
		DeviceAlias:    optString(src.Equipment),
		DeviceLocation: optString(src.Location),
		AccountName:    optString(src.Vendor),
	}
	if src.HasLatitude() {
		v := float64(src.Latitude)
		m.Latitude = &v
	}
	if src.HasLongitude() {
		v := float64(src.Longitude)
		m.Longitude = &v
	}
	return m
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptrID(id snowflake.ID) *snowflake.ID { return &id }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
