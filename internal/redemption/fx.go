package redemption

import (
	"github.com/jhnmartin/hey-sub000/internal/redemption/repository"
	"github.com/jhnmartin/hey-sub000/internal/redemption/service"
	"go.uber.org/fx"
)

var Module = fx.Module("redemption.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
