package asset

import (
	"github.com/smallbiznis/pqio/internal/asset/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("asset.repository",
	fx.Provide(repository.Provide),
)
