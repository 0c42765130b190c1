package raymarch

import (
	"io/fs"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/raymarch/camera"
	"github.com/gogpu/raymarch/internal/gpu"
	"github.com/gogpu/wgpu/hal"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r := raymarch.New(backend,
//	    raymarch.WithSampleCount(1),
//	    raymarch.WithShaderDir("./shaders"),
//	)
type Option func(*options)

type options struct {
	shaderFS   fs.FS
	vertPath   string
	fragPath   string
	entryPoint string

	sampleCount uint32
	depthFormat gputypes.TextureFormat
	clear       gputypes.Color

	camera  []camera.Option
	context []gpu.ContextOption
}

func defaultOptions() options {
	return options{
		shaderFS:    gpu.DefaultShaders(),
		vertPath:    gpu.DefaultVertexShader,
		fragPath:    gpu.DefaultFragmentShader,
		entryPoint:  gpu.DefaultEntryPoint,
		sampleCount: 4,
		depthFormat: gputypes.TextureFormatDepth24Plus,
		clear:       gputypes.Color{R: 0, G: 0, B: 0, A: 1},
	}
}

// WithShaderFS loads the vertex and fragment shaders from fsys.
func WithShaderFS(fsys fs.FS, vertPath, fragPath string) Option {
	return func(o *options) {
		o.shaderFS = fsys
		o.vertPath = vertPath
		o.fragPath = fragPath
	}
}

// WithShaderDir loads basic.vert.wgsl and basic.frag.wgsl from dir.
func WithShaderDir(dir string) Option {
	return WithShaderFS(os.DirFS(dir), gpu.DefaultVertexShader, gpu.DefaultFragmentShader)
}

// WithEntryPoint sets the entry point name used for both shader stages.
// The default is "main".
func WithEntryPoint(name string) Option {
	return func(o *options) {
		if name != "" {
			o.entryPoint = name
		}
	}
}

// WithSampleCount sets the MSAA sample count: 1 or 4. The default is 4.
// With 1 the pass renders straight into the surface.
func WithSampleCount(n uint32) Option {
	return func(o *options) {
		o.sampleCount = n
	}
}

// WithDepthFormat sets the depth target format. TextureFormatUndefined
// disables the depth target. The default is Depth24Plus.
func WithDepthFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.depthFormat = f
	}
}

// WithClearColor sets the color each frame is cleared to.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clear = c
	}
}

// WithCamera passes options to the camera rig.
func WithCamera(opts ...camera.Option) Option {
	return func(o *options) {
		o.camera = append(o.camera, opts...)
	}
}

// WithAdapterName restricts adapter selection to adapters whose name
// contains name (case-insensitive).
func WithAdapterName(name string) Option {
	return func(o *options) {
		o.context = append(o.context, gpu.WithAdapterName(name))
	}
}

// WithPresentMode sets the surface presentation mode. The default is Fifo.
func WithPresentMode(m hal.PresentMode) Option {
	return func(o *options) {
		o.context = append(o.context, gpu.WithPresentMode(m))
	}
}
