package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved layout
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Quire", GetVersion())

	logger.Info().
		Str("root", config.Paths.Root).
		Str("index", config.Paths.Index).
		Str("raster_engine", config.Raster.Engine).
		Int("dpi", config.Raster.DPI).
		Str("ocr_lang", config.OCR.DefaultLanguage).
		Int("workers", config.WorkerCount()).
		Msg("Configuration resolved")
}
