package ticket

import (
	"github.com/jhnmartin/hey-sub000/internal/ticket/domain"
	"github.com/jhnmartin/hey-sub000/internal/ticket/repository"
	"github.com/jhnmartin/hey-sub000/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) domain.Issuer { return svc }),
)
