package importrun

import (
	"github.com/smallbiznis/pqio/internal/importrun/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("importrun.repository",
	fx.Provide(repository.Provide),
)
