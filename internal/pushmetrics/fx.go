package pushmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pushInterval = time.Minute

// Module refreshes the inventory gauges and pushes them together with the
// default registry. A final push runs on shutdown so one-shot CLI imports
// still report.
var Module = fx.Module("push.metrics",
	fx.Provide(func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewInventory),
	fx.Provide(NewPusher),
	fx.Invoke(start),
)

type startParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Pusher    Pusher `optional:"true"`
	Inventory *Inventory
	Registry  *prometheus.Registry
	DB        *gorm.DB
	Log       *zap.Logger
}

func start(p startParams) {
	if p.Pusher == nil {
		return
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("push.metrics")
	gatherer := prometheus.Gatherers{prometheus.DefaultGatherer, p.Registry}

	pushOnce := func(ctx context.Context) {
		p.Inventory.Refresh(ctx, p.DB)
		pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
		defer cancel()
		if err := p.Pusher.Push(pushCtx, gatherer); err != nil {
			log.Warn("metrics push failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(pushInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						pushOnce(ctx)
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			pushOnce(stopCtx)
			return nil
		},
	})
}
