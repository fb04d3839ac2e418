package sensitivity

import (
	"github.com/smallbiznis/pqio/internal/sensitivity/repository"
	"github.com/smallbiznis/pqio/internal/sensitivity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sensitivity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
