package providers

import (
	"github.com/jhnmartin/hey-sub000/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
)
