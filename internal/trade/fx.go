package trade

import (
	"github.com/taxlens/taxlens/internal/trade/repository"
	"github.com/taxlens/taxlens/internal/trade/service"
	"go.uber.org/fx"
)

var Module = fx.Module("trade",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewDetector),
)
