package gpu

import (
	"sort"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/ir"
)

// EntryPoint is a named shader entry point and its pipeline stage.
type EntryPoint struct {
	Name  string
	Stage gputypes.ShaderStage
}

// ShaderBinding is a resource a module declares at @group(g) @binding(b).
type ShaderBinding struct {
	Group   uint32
	Binding uint32
	Kind    BindingKind
	Name    string
}

func reflectEntryPoints(m *ir.Module) []EntryPoint {
	out := make([]EntryPoint, 0, len(m.EntryPoints))
	for _, ep := range m.EntryPoints {
		var stage gputypes.ShaderStage
		switch ep.Stage {
		case ir.StageVertex:
			stage = gputypes.ShaderStageVertex
		case ir.StageFragment:
			stage = gputypes.ShaderStageFragment
		case ir.StageCompute:
			stage = gputypes.ShaderStageCompute
		default:
			continue
		}
		out = append(out, EntryPoint{Name: ep.Name, Stage: stage})
	}
	return out
}

func reflectBindings(m *ir.Module) []ShaderBinding {
	var out []ShaderBinding
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		kind, ok := globalKind(m, gv)
		if !ok {
			continue
		}
		out = append(out, ShaderBinding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Kind:    kind,
			Name:    gv.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}

func globalKind(m *ir.Module, gv ir.GlobalVariable) (BindingKind, bool) {
	switch gv.Space {
	case ir.SpaceUniform:
		return BindingUniformBuffer, true
	case ir.SpaceStorage:
		if gv.Access == ir.StorageRead {
			return BindingReadOnlyStorageBuffer, true
		}
		return BindingStorageBuffer, true
	case ir.SpaceHandle:
		if int(gv.Type) >= len(m.Types) {
			return 0, false
		}
		switch m.Types[gv.Type].Inner.(type) {
		case ir.SamplerType:
			return BindingSampler, true
		case ir.ImageType:
			return BindingTexture, true
		}
	}
	return 0, false
}

// bindingCompatible reports whether a layout slot of kind slot can serve a
// shader binding of kind want. A read-write storage slot satisfies a
// read-only use.
func bindingCompatible(slot, want BindingKind) bool {
	if slot == want {
		return true
	}
	return slot == BindingStorageBuffer && want == BindingReadOnlyStorageBuffer
}
