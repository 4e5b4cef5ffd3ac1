package taxpayer

import (
	"github.com/taxlens/taxlens/internal/taxpayer/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("taxpayer",
	fx.Provide(repository.NewRepository),
)
