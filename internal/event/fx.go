package event

import (
	"github.com/jhnmartin/hey-sub000/internal/event/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("event.repository",
	fx.Provide(repository.Provide),
)
