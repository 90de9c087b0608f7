// Package blocks ships the built-in capability blocks and wires them into a
// registry. Embedders that need a different block set build their own
// registry instead of calling RegisterDefaults.
package blocks

import (
	"github.com/vk/plangridgo/blocks/data"
	"github.com/vk/plangridgo/blocks/forecast"
	"github.com/vk/plangridgo/blocks/geo"
	"github.com/vk/plangridgo/blocks/optimize"
	"github.com/vk/plangridgo/blocks/weather"
	"github.com/vk/plangridgo/internal/registry"
)

// RegisterDefaults registers every built-in block.
func RegisterDefaults(reg *registry.Registry) {
	reg.Register(data.New())
	reg.Register(forecast.New())
	reg.Register(geo.New())
	reg.Register(weather.New())
	reg.Register(optimize.New(nil))
}
