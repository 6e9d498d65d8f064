package inventory

import (
	"github.com/jhnmartin/hey-sub000/internal/inventory/repository"
	"github.com/jhnmartin/hey-sub000/internal/inventory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
