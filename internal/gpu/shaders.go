package gpu

import (
	"embed"
	"io/fs"
)

// Default shader paths inside DefaultShaders.
const (
	DefaultVertexShader   = "basic.vert.wgsl"
	DefaultFragmentShader = "basic.frag.wgsl"
	DefaultEntryPoint     = "main"
)

//go:embed shaders/*.wgsl
var embeddedShaders embed.FS

// DefaultShaders returns the embedded default shaders, rooted so that
// DefaultVertexShader and DefaultFragmentShader resolve directly.
func DefaultShaders() fs.FS {
	sub, err := fs.Sub(embeddedShaders, "shaders")
	if err != nil {
		panic("gpu: embedded shaders: " + err.Error())
	}
	return sub
}
