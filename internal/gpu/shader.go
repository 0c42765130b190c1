package gpu

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"
)

// ShaderLoader produces WGSL source text. Loading may block, so it takes a
// context.
type ShaderLoader interface {
	Load(ctx context.Context) (string, error)
	// Name identifies the source in diagnostics (a path, or "" for inline text).
	Name() string
}

// ShaderText is inline WGSL source.
type ShaderText string

// Load returns the text itself.
func (s ShaderText) Load(context.Context) (string, error) { return string(s), nil }

// Name returns "" for inline text.
func (ShaderText) Name() string { return "" }

// ShaderFile reads WGSL source from a path in a file system.
type ShaderFile struct {
	FS   fs.FS
	Path string
}

// Load reads the file, failing early if ctx is already done.
func (f ShaderFile) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.FS == nil {
		return "", fmt.Errorf("no file system for %q", f.Path)
	}
	data, err := fs.ReadFile(f.FS, f.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Name returns the path.
func (f ShaderFile) Name() string { return f.Path }

// ShaderModuleOptions describes a shader module to create.
type ShaderModuleOptions struct {
	Label  string
	Source ShaderLoader
}

// ShaderModule is a compiled WGSL module together with the entry points and
// resource bindings reflected from it.
type ShaderModule struct {
	raw    hal.ShaderModule
	device hal.Device
	label  string
	path   string

	entryPoints []EntryPoint
	bindings    []ShaderBinding
}

// NewShaderModule loads, validates and compiles a WGSL module. Load and
// compile failures are both reported as *ShaderCompileError.
func NewShaderModule(ctx context.Context, gc *Context, opts ShaderModuleOptions) (*ShaderModule, error) {
	if gc == nil || !gc.Initialized() {
		return nil, &ResourceError{Kind: "shader module", Label: opts.Label, Err: ErrNotInitialized}
	}
	if opts.Source == nil {
		return nil, &ShaderCompileError{Label: opts.Label, Diagnostic: "no shader source"}
	}
	path := opts.Source.Name()

	src, err := opts.Source.Load(ctx)
	if err != nil {
		return nil, &ShaderCompileError{Label: opts.Label, Path: path, Diagnostic: "load: " + err.Error(), Err: err}
	}

	module, err := compileWGSL(src)
	if err != nil {
		return nil, &ShaderCompileError{Label: opts.Label, Path: path, Diagnostic: err.Error(), Err: err}
	}
	entryPoints := reflectEntryPoints(module)
	if len(entryPoints) == 0 {
		return nil, &ShaderCompileError{Label: opts.Label, Path: path, Diagnostic: "module declares no entry points"}
	}

	raw, err := gc.HalDevice().CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  opts.Label,
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return nil, &ShaderCompileError{Label: opts.Label, Path: path, Diagnostic: err.Error(), Err: err}
	}

	sm := &ShaderModule{
		raw:         raw,
		device:      gc.HalDevice(),
		label:       opts.Label,
		path:        path,
		entryPoints: entryPoints,
		bindings:    reflectBindings(module),
	}
	slogger().Debug("gpu: shader module created",
		"label", opts.Label,
		"path", path,
		"entry_points", len(entryPoints),
		"bindings", len(sm.bindings),
	)
	return sm, nil
}

// compileWGSL runs the naga front end and validator over src.
func compileWGSL(src string) (*ir.Module, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("empty source")
	}
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, err
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, err
	}
	findings, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if len(findings) > 0 {
		msgs := make([]string, len(findings))
		for i, f := range findings {
			msgs[i] = f.Error()
		}
		return nil, fmt.Errorf("validate: %s", strings.Join(msgs, "; "))
	}
	return module, nil
}

// Raw returns the underlying shader module handle.
func (m *ShaderModule) Raw() hal.ShaderModule { return m.raw }

// Label returns the debug label.
func (m *ShaderModule) Label() string { return m.label }

// Path returns the source path, or "" for inline text.
func (m *ShaderModule) Path() string { return m.path }

// EntryPoints returns the reflected entry points.
func (m *ShaderModule) EntryPoints() []EntryPoint {
	return append([]EntryPoint(nil), m.entryPoints...)
}

// EntryPoint looks up an entry point by name.
func (m *ShaderModule) EntryPoint(name string) (EntryPoint, bool) {
	for _, ep := range m.entryPoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Bindings returns the reflected resource bindings, sorted by group then binding.
func (m *ShaderModule) Bindings() []ShaderBinding {
	return append([]ShaderBinding(nil), m.bindings...)
}

// Destroy releases the shader module. Safe to call multiple times.
func (m *ShaderModule) Destroy() {
	if m.raw != nil && m.device != nil {
		m.device.DestroyShaderModule(m.raw)
	}
	m.raw = nil
}
