package rasterize

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
)

// New returns the rasterizer selected by the raster configuration
func New(cfg common.RasterConfig, logger arbor.ILogger) (interfaces.Rasterizer, error) {
	switch cfg.Engine {
	case EnginePdftocairo, EnginePdftoppm:
		return NewPopplerRasterizer(cfg.Engine, cfg.PopplerPath, logger)
	case EngineEmbedded:
		return NewEmbeddedRasterizer(logger), nil
	default:
		return nil, fmt.Errorf("unknown raster engine %q", cfg.Engine)
	}
}
