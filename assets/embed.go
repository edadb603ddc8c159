// Package assets holds files compiled into the binary.
package assets

import (
	_ "embed"
)

// DefaultSettings is the settings document written on first run: a small
// marker library and one unconfigured category.
//
//go:embed default_settings.json
var DefaultSettings []byte
