package risk

import (
	"github.com/taxlens/taxlens/internal/risk/service"
	"go.uber.org/fx"
)

var Module = fx.Module("risk",
	fx.Provide(service.NewService),
)
