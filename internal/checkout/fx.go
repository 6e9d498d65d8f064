package checkout

import (
	"github.com/jhnmartin/hey-sub000/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(service.New),
)
