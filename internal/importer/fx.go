package importer

import (
	"github.com/smallbiznis/pqio/internal/pqdif"
	"go.uber.org/fx"
)

var Module = fx.Module("importer",
	fx.Provide(pqdif.NewJSONDecoder),
	fx.Provide(New),
)
