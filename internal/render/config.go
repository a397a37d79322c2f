package render

import (
	"os"

	"github.com/diogo/shopchat/internal/config"
)

// LoadOptionsFromConfig loads render options from user configuration.
// GLAMOUR_STYLE takes precedence over the config file.
func LoadOptionsFromConfig() Options {
	opts := DefaultOptions()

	cfg, err := config.LoadConfig()
	if err == nil {
		if cfg.Markdown.Style != "" {
			opts.Style = cfg.Markdown.Style
		}
		opts.PreserveNewLines = cfg.Markdown.PreserveNewLines
	}

	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		opts.Style = style
	}

	return opts
}

// LoadOptionsFromConfigWithWidth loads options from config with a specific width.
func LoadOptionsFromConfigWithWidth(width int) Options {
	opts := LoadOptionsFromConfig()
	opts.Width = width
	return opts
}
