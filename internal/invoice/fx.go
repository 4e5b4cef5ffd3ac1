package invoice

import (
	"github.com/taxlens/taxlens/internal/invoice/repository"
	"github.com/taxlens/taxlens/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
