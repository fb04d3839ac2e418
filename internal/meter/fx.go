package meter

import (
	"github.com/smallbiznis/pqio/internal/meter/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.repository",
	fx.Provide(repository.Provide),
)
