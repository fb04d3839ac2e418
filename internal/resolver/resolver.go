package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	obsmetrics "github.com/smallbiznis/pqio/internal/observability/metrics"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome says what resolution did with an incoming record.
type Outcome string

const (
	Created Outcome = "created"
	Merged  Outcome = "merged"
	Renamed Outcome = "renamed"
	Matched Outcome = "matched"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Assets   assetdomain.Repository
	Meters   meterdomain.Repository
	Channels channeldomain.Repository
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

// Resolver decides whether incoming assets, meters and channels duplicate
// stored ones and merges or inserts accordingly. Every call runs on the
// handle it is given so importers control transactions.
type Resolver struct {
	log      *zap.Logger
	genID    *snowflake.Node
	assets   assetdomain.Repository
	meters   meterdomain.Repository
	channels channeldomain.Repository
	metrics  *obsmetrics.Metrics
}

func New(p Params) *Resolver {
	return &Resolver{
		log:      p.Log.Named("resolver"),
		genID:    p.GenID,
		assets:   p.Assets,
		meters:   p.Meters,
		channels: p.Channels,
		metrics:  p.Metrics,
	}
}

// ResolveAsset matches on AssetKey. A compatible match keeps its own values
// and only fills its nulls from incoming. A conflicting match leaves the
// stored asset alone and inserts incoming under the first free "<key> N".
func (r *Resolver) ResolveAsset(ctx context.Context, db *gorm.DB, incoming *assetdomain.Asset) (*assetdomain.Asset, Outcome, error) {
	existing, err := r.assets.FindByKey(ctx, db, incoming.AssetKey)
	if err != nil {
		return nil, "", pqerr.Persistence("find asset", err)
	}
	if existing == nil {
		if err := r.insertAsset(ctx, db, incoming); err != nil {
			return nil, "", err
		}
		return done(ctx, r, "asset", incoming, Created)
	}

	if Compatible(
		Compare(existing.NominalVoltage, incoming.NominalVoltage),
		Compare(existing.NominalFrequency, incoming.NominalFrequency),
		Compare(existing.UpstreamXFMR, incoming.UpstreamXFMR),
		Compare(existing.LineLength, incoming.LineLength),
	) {
		changed := fill(&existing.NominalVoltage, incoming.NominalVoltage)
		changed = fill(&existing.NominalFrequency, incoming.NominalFrequency) || changed
		changed = fill(&existing.UpstreamXFMR, incoming.UpstreamXFMR) || changed
		changed = fill(&existing.LineLength, incoming.LineLength) || changed
		changed = fill(&existing.AssetName, incoming.AssetName) || changed
		if !changed {
			return done(ctx, r, "asset", existing, Matched)
		}
		existing.UpdatedAt = time.Now().UTC()
		if err := r.assets.Update(ctx, db, existing); err != nil {
			return nil, "", pqerr.Persistence("update asset", err)
		}
		return done(ctx, r, "asset", existing, Merged)
	}

	name, err := r.FreeName(ctx, db, incoming.AssetKey)
	if err != nil {
		return nil, "", err
	}
	r.log.Info("asset key conflict, renaming",
		zap.String("asset_key", incoming.AssetKey),
		zap.String("renamed_to", name),
	)
	incoming.AssetKey = name
	if err := r.insertAsset(ctx, db, incoming); err != nil {
		return nil, "", err
	}
	return done(ctx, r, "asset", incoming, Renamed)
}

// FreeName returns base when no asset uses it, else the first "<base> N"
// with N counting from 1.
func (r *Resolver) FreeName(ctx context.Context, db *gorm.DB, base string) (string, error) {
	keys, err := r.assets.KeysLike(ctx, db, base)
	if err != nil {
		return "", pqerr.Persistence("list asset keys", err)
	}
	taken := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		taken[k] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base, nil
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s %d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}

// ResolveMeter scans meters sharing DeviceName and merges into the first one
// whose optional fields are all compatible. Incoming non-null values
// overwrite the stored ones, unlike ResolveAsset.
func (r *Resolver) ResolveMeter(ctx context.Context, db *gorm.DB, incoming *meterdomain.Meter) (*meterdomain.Meter, Outcome, error) {
	candidates, err := r.meters.FindByDeviceName(ctx, db, incoming.DeviceName)
	if err != nil {
		return nil, "", pqerr.Persistence("find meters", err)
	}
	for i := range candidates {
		existing := &candidates[i]
		if !meterCompatible(existing, incoming) {
			continue
		}
		changed := overwrite(&existing.DeviceAlias, incoming.DeviceAlias)
		changed = overwrite(&existing.DeviceLocation, incoming.DeviceLocation) || changed
		changed = overwrite(&existing.DeviceLocationAlias, incoming.DeviceLocationAlias) || changed
		changed = overwrite(&existing.Latitude, incoming.Latitude) || changed
		changed = overwrite(&existing.Longitude, incoming.Longitude) || changed
		changed = overwrite(&existing.AccountName, incoming.AccountName) || changed
		changed = overwrite(&existing.AccountAlias, incoming.AccountAlias) || changed
		changed = overwrite(&existing.DistanceToXFMR, incoming.DistanceToXFMR) || changed
		changed = overwrite(&existing.Owner, incoming.Owner) || changed
		if !changed {
			return done(ctx, r, "meter", existing, Matched)
		}
		existing.UpdatedAt = time.Now().UTC()
		if err := r.meters.Update(ctx, db, existing); err != nil {
			return nil, "", pqerr.Persistence("update meter", err)
		}
		return done(ctx, r, "meter", existing, Merged)
	}

	now := time.Now().UTC()
	incoming.ID = r.genID.Generate()
	incoming.CreatedAt, incoming.UpdatedAt = now, now
	if err := r.meters.Insert(ctx, db, incoming); err != nil {
		return nil, "", pqerr.Persistence("insert meter", err)
	}
	return done(ctx, r, "meter", incoming, Created)
}

func meterCompatible(a, b *meterdomain.Meter) bool {
	return Compatible(
		Compare(a.DeviceAlias, b.DeviceAlias),
		Compare(a.DeviceLocation, b.DeviceLocation),
		Compare(a.DeviceLocationAlias, b.DeviceLocationAlias),
		Compare(a.Latitude, b.Latitude),
		Compare(a.Longitude, b.Longitude),
		Compare(a.AccountName, b.AccountName),
		Compare(a.AccountAlias, b.AccountAlias),
		Compare(a.DistanceToXFMR, b.DistanceToXFMR),
		Compare(a.Owner, b.Owner),
	)
}

// ResolveChannel matches the exact (measurement, asset, signal, meter)
// tuple. A match is returned unchanged.
func (r *Resolver) ResolveChannel(ctx context.Context, db *gorm.DB, incoming *channeldomain.Channel) (*channeldomain.Channel, Outcome, error) {
	existing, err := r.channels.FindIdentity(ctx, db,
		incoming.MeasurementType,
		incoming.AssetID,
		incoming.SignalType,
		incoming.MeterID,
	)
	if err != nil {
		return nil, "", pqerr.Persistence("find channel", err)
	}
	if existing != nil {
		return done(ctx, r, "channel", existing, Matched)
	}

	incoming.ID = r.genID.Generate()
	incoming.CreatedAt = time.Now().UTC()
	if err := r.channels.Insert(ctx, db, incoming); err != nil {
		return nil, "", pqerr.Persistence("insert channel", err)
	}
	return done(ctx, r, "channel", incoming, Created)
}

func (r *Resolver) insertAsset(ctx context.Context, db *gorm.DB, a *assetdomain.Asset) error {
	now := time.Now().UTC()
	a.ID = r.genID.Generate()
	a.CreatedAt, a.UpdatedAt = now, now
	if err := r.assets.Insert(ctx, db, a); err != nil {
		return pqerr.Persistence("insert asset", err)
	}
	return nil
}

func done[T any](ctx context.Context, r *Resolver, entity string, v *T, outcome Outcome) (*T, Outcome, error) {
	r.metrics.RecordMerge(ctx, entity, string(outcome))
	return v, outcome, nil
}
