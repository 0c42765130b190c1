package raymarch

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/raymarch/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Capability reports whether a backend can run the renderer.
type Capability struct {
	Supported bool
	// Reason explains an unsupported result.
	Reason string
	// Adapter names the adapter Start would select.
	Adapter string
}

// Supported returns a supported Capability.
func Supported() Capability { return Capability{Supported: true} }

// Unsupported returns an unsupported Capability with the given reason.
func Unsupported(reason string) Capability { return Capability{Reason: reason} }

// Probe checks that backend can create an instance and exposes at least one
// adapter. It does not open a device.
func Probe(backend hal.Backend) Capability {
	if backend == nil {
		return Unsupported("no GPU backend registered")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return Unsupported(err.Error())
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	defer func() {
		for _, a := range adapters {
			if a.Adapter != nil {
				a.Adapter.Destroy()
			}
		}
	}()
	selected, err := gpu.PreferredAdapter(adapters)
	if err != nil {
		return Unsupported("no compatible adapter")
	}

	c := Supported()
	c.Adapter = selected.Info.Name
	return c
}

// probeOrder is the backend preference order of ProbeDefault.
var probeOrder = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// ProbeDefault probes the registered backends in preference order and
// returns the first supported one. Backends are registered by importing
// them, for example github.com/gogpu/wgpu/hal/allbackends.
func ProbeDefault() (Capability, hal.Backend) {
	last := Unsupported("no GPU backend registered")
	for _, variant := range probeOrder {
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		c := Probe(backend)
		if c.Supported {
			Logger().Info("raymarch: backend probed", "backend", variant.String(), "adapter", c.Adapter)
			return c, backend
		}
		Logger().Debug("raymarch: backend unsupported", "backend", variant.String(), "reason", c.Reason)
		last = c
	}
	return last, nil
}
