package reconcile

import (
	"github.com/taxlens/taxlens/internal/reconcile/domain"
	"github.com/taxlens/taxlens/internal/reconcile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile",
	fx.Provide(domain.NewResultCache),
	fx.Provide(service.NewService),
)
