package dataseries

import (
	"github.com/smallbiznis/pqio/internal/dataseries/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("dataseries.repository",
	fx.Provide(repository.Provide),
)
