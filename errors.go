package raymarch

import (
	"errors"

	"github.com/gogpu/raymarch/internal/gpu"
)

// ErrNotStarted is returned when a Renderer is used before Start or after
// Close.
var ErrNotStarted = errors.New("raymarch: renderer not started")

// Error sentinels. All of them match with errors.Is.
var (
	ErrAdapterUnavailable   = gpu.ErrAdapterUnavailable
	ErrDeviceCreationFailed = gpu.ErrDeviceCreationFailed
	ErrSurfaceConfiguration = gpu.ErrSurfaceConfiguration
	ErrResourceCreation     = gpu.ErrResourceCreation
	ErrShaderCompile        = gpu.ErrShaderCompile
	ErrPipelineCreation     = gpu.ErrPipelineCreation
	ErrBindGroupMismatch    = gpu.ErrBindGroupMismatch
	ErrSubmission           = gpu.ErrSubmission
)

// Error types.
type (
	Stage                 = gpu.Stage
	StageError            = gpu.StageError
	ShaderCompileError    = gpu.ShaderCompileError
	PipelineCreationError = gpu.PipelineCreationError
	ResourceError         = gpu.ResourceError
)

// Stages reported by StageOf.
const (
	StageAdapter  = gpu.StageAdapter
	StageDevice   = gpu.StageDevice
	StageSurface  = gpu.StageSurface
	StageShader   = gpu.StageShader
	StagePipeline = gpu.StagePipeline
	StageResource = gpu.StageResource
	StageSubmit   = gpu.StageSubmit
)

// StageOf reports the stage recorded in err, if any.
func StageOf(err error) (Stage, bool) { return gpu.StageOf(err) }

// SurfaceTarget describes the window (or headless area) to render into.
type SurfaceTarget = gpu.SurfaceTarget
