package identity

import (
	"github.com/jhnmartin/hey-sub000/internal/identity/repository"
	"github.com/jhnmartin/hey-sub000/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
