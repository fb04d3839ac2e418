package setting

import (
	"github.com/smallbiznis/pqio/internal/setting/repository"
	"github.com/smallbiznis/pqio/internal/setting/service"
	"go.uber.org/fx"
)

var Module = fx.Module("setting.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
