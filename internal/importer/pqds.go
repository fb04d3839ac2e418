package importer

import (
	"context"
	"strings"

	"github.com/google/uuid"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	customfielddomain "github.com/smallbiznis/pqio/internal/customfield/domain"
	dataseriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	obscontext "github.com/smallbiznis/pqio/internal/observability/context"
	"github.com/smallbiznis/pqio/internal/observability/tracing"
	"github.com/smallbiznis/pqio/internal/pqds"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/resolver"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// DefaultPQDSName names the asset, meter and event of a file that leaves them unnamed.
const DefaultPQDSName = "PQDS File"

// ImportPQDS loads one PQDS file. Writes are not wrapped in a transaction,
// so a failure after the event insert leaves the rows written so far.
func (i *Importer) ImportPQDS(ctx context.Context, path string, progress ProgressFunc) FileResult {
	return i.importPQDS(ctx, path, newTracker(progress))
}

func (i *Importer) importPQDS(ctx context.Context, path string, track *tracker) FileResult {
	ctx = obscontext.WithFile(ctx, path)
	ctx, span := tracing.Start(ctx, "importer.pqds", attribute.String("format", FormatPQDS))
	run := newFileRun(path, i.clock.Now())

	res := func() FileResult {
		f, err := pqds.ReadFile(path)
		if err != nil {
			return run.fail(asParseError(err))
		}
		track.add(50)

		run.enter(StageResolve)
		db := i.db.WithContext(ctx)
		asset, meter, err := i.resolvePQDS(ctx, db, f, &run.result.Created)
		if err != nil {
			return run.fail(err)
		}

		run.enter(StagePersist)
		if err := i.persistPQDS(ctx, db, f, asset, meter, &run.result.Created); err != nil {
			return run.fail(err)
		}
		track.add(50)
		return run.succeed()
	}()

	tracing.End(span, res.Err)
	return i.finish(ctx, FormatPQDS, run, res)
}

func (i *Importer) resolvePQDS(ctx context.Context, db *gorm.DB, f *pqds.File, counts *Counts) (*assetdomain.Asset, *meterdomain.Meter, error) {
	incomingAsset := &assetdomain.Asset{
		NominalVoltage:   f.Float(pqds.KeyNominalVoltage),
		NominalFrequency: f.Float(pqds.KeyNominalFrequency),
		UpstreamXFMR:     f.Float(pqds.KeyUpstreamXFMR),
		LineLength:       f.Float(pqds.KeyLineLength),
	}
	if name := f.Text(pqds.KeyAssetName); name != nil {
		incomingAsset.AssetKey = *name
	} else {
		key, err := i.resolver.FreeName(ctx, db, DefaultPQDSName)
		if err != nil {
			return nil, nil, err
		}
		incomingAsset.AssetKey = key
	}
	assetName := incomingAsset.AssetKey
	incomingAsset.AssetName = &assetName

	asset, outcome, err := i.resolver.ResolveAsset(ctx, db, incomingAsset)
	if err != nil {
		return nil, nil, err
	}
	counts.Assets += created(outcome)

	meter, outcome, err := i.resolver.ResolveMeter(ctx, db, meterFromTags(f))
	if err != nil {
		return nil, nil, err
	}
	counts.Meters += created(outcome)
	return asset, meter, nil
}

func (i *Importer) persistPQDS(ctx context.Context, db *gorm.DB, f *pqds.File, asset *assetdomain.Asset, meter *meterdomain.Meter, counts *Counts) error {
	now := i.clock.Now()

	evt := eventFromTags(f)
	evt.ID = i.genID.Generate()
	evt.CreatedAt = now
	if err := i.events.Insert(ctx, db, evt); err != nil {
		return pqerr.Persistence("insert event", err)
	}
	counts.Events++

	signal := signalTypeFromTags(f)
	for _, key := range f.Keys {
		if !pqds.IsMeasurement(key) {
			continue
		}
		points := f.Series[key]
		if len(points) == 0 {
			continue
		}
		assetID := asset.ID
		mt := channeldomain.ParseMeasurementType(pqds.NormalizeKey(key))
		ch, outcome, err := i.resolver.ResolveChannel(ctx, db, &channeldomain.Channel{
			MeterID:         meter.ID,
			AssetID:         &assetID,
			MeasurementType: mt,
			SignalType:      signal,
			Name:            mt.Display(),
		})
		if err != nil {
			return err
		}
		counts.Channels += created(outcome)

		id := i.genID.Generate()
		blob, err := i.encode(ctx, string(mt), points, int32(id.Int64()))
		if err != nil {
			return err
		}
		if err := i.series.Insert(ctx, db, &dataseriesdomain.DataSeries{
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

	if code := f.Int(pqds.KeyWaveFormSensitivityCode); code != nil {
		note := ""
		if n := f.Text(pqds.KeyWaveFormSensitivityNote); n != nil {
			note = *n
		}
		if err := i.sensitivity.Insert(ctx, db, &sensitivitydomain.DataSensitivity{
			ID:              i.genID.Generate(),
			AssetID:         asset.ID,
			EventID:         evt.ID,
			DataSensitivity: code,
			Note:            &note,
			CreatedAt:       now,
		}); err != nil {
			return pqerr.Persistence("insert data sensitivity", err)
		}
	}

	for _, tag := range f.Custom() {
		domain, key, _ := tag.Domain()
		assetID, eventID := asset.ID, evt.ID
		if err := i.customFields.Insert(ctx, db, &customfielddomain.CustomField{
			ID:        i.genID.Generate(),
			AssetID:   &assetID,
			EventID:   &eventID,
			Domain:    domain,
			Key:       key,
			Value:     tag.Value,
			Type:      tag.Type.Code(),
			CreatedAt: now,
		}); err != nil {
			return pqerr.Persistence("insert custom field", err)
		}
	}
	return nil
}

// meterFromTags reads the device group. ConnectionType is stored when the
// meter is created but never compared or merged.
func meterFromTags(f *pqds.File) *meterdomain.Meter {
	m := &meterdomain.Meter{
		DeviceName:          DefaultPQDSName,
		DeviceAlias:         f.Text(pqds.KeyDeviceAlias),
		DeviceLocation:      f.Text(pqds.KeyDeviceLocation),
		DeviceLocationAlias: f.Text(pqds.KeyDeviceLocationAlias),
		Latitude:            f.Float(pqds.KeyLatitude),
		Longitude:           f.Float(pqds.KeyLongitude),
		AccountName:         f.Text(pqds.KeyAccountName),
		AccountAlias:        f.Text(pqds.KeyAccountNameAlias),
		DistanceToXFMR:      f.Float(pqds.KeyDistanceToXFMR),
		ConnectionType:      f.Int(pqds.KeyConnectionType),
		Owner:               f.Text(pqds.KeyDeviceOwner),
	}
	if name := f.Text(pqds.KeyDeviceName); name != nil {
		m.DeviceName = *name
	}
	return m
}

func eventFromTags(f *pqds.File) *eventdomain.Event {
	evt := &eventdomain.Event{
		GUID:            uuid.NewString(),
		Name:            DefaultPQDSName,
		EventType:       f.Int(pqds.KeyEventType),
		FaultType:       f.Int(pqds.KeyEventFaultType),
		PeakCurrent:     f.Float(pqds.KeyEventPeakCurrent),
		PeakVoltage:     f.Float(pqds.KeyEventPeakVoltage),
		MaxVA:           f.Float(pqds.KeyEventMaxVA),
		MaxVB:           f.Float(pqds.KeyEventMaxVB),
		MaxVC:           f.Float(pqds.KeyEventMaxVC),
		MinVA:           f.Float(pqds.KeyEventMinVA),
		MinVB:           f.Float(pqds.KeyEventMinVB),
		MinVC:           f.Float(pqds.KeyEventMinVC),
		MaxIA:           f.Float(pqds.KeyEventMaxIA),
		MaxIB:           f.Float(pqds.KeyEventMaxIB),
		MaxIC:           f.Float(pqds.KeyEventMaxIC),
		PreEventCurrent: f.Float(pqds.KeyPreEventCurrent),
		PreEventVoltage: f.Float(pqds.KeyPreEventVoltage),
		Duration:        f.Float(pqds.KeyEventDuration),
		FaultI2T:        f.Float(pqds.KeyEventFaultI2T),
		DistanceToFault: f.Float(pqds.KeyDistanceToFault),
		FaultCause:      f.Int(pqds.KeyEventCauseCode),
	}
	if guid := f.Text(pqds.KeyEventGUID); guid != nil {
		evt.GUID = strings.ToLower(*guid)
	}
	if name := f.Text(pqds.KeyEventID); name != nil {
		evt.Name = *name
	}
	if start, ok, err := pqds.StartFromTags(f); err == nil && ok {
		t := start.UTC()
		evt.EventTime = &t
	}
	return evt
}

// signalTypeFromTags reads WaveFormDataType; absent means point on wave.
func signalTypeFromTags(f *pqds.File) channeldomain.SignalType {
	code := f.Int(pqds.KeyWaveFormDataType)
	if code == nil {
		return channeldomain.PointOnWave
	}
	switch st := channeldomain.SignalType(*code); st {
	case channeldomain.PointOnWave, channeldomain.RMS:
		return st
	default:
		return channeldomain.SignalOther
	}
}

func created(o resolver.Outcome) int {
	if o == resolver.Created || o == resolver.Renamed {
		return 1
	}
	return 0
}

// asParseError classifies read failures that carry no kind of their own,
// such as a missing file.
func asParseError(err error) error {
	if pqerr.KindOf(err) == pqerr.KindUnknown {
		return pqerr.Parsef("%v", err)
	}
	return err
}
