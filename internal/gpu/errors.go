package gpu

import (
	"errors"
	"fmt"
)

// Initialization errors.
var (
	// ErrAdapterUnavailable is returned when no compatible adapter can be found.
	ErrAdapterUnavailable = errors.New("gpu: no compatible adapter available")

	// ErrDeviceCreationFailed is returned when the adapter rejects the
	// requested features or limits.
	ErrDeviceCreationFailed = errors.New("gpu: device creation failed")

	// ErrSurfaceConfiguration is returned when the presentation surface
	// cannot be configured for the requested size and format.
	ErrSurfaceConfiguration = errors.New("gpu: surface configuration failed")

	// ErrNotInitialized is returned when a Context is used before Initialize.
	ErrNotInitialized = errors.New("gpu: context not initialized")
)

// Resource creation errors.
var (
	// ErrResourceCreation matches every setup-time resource failure,
	// including shader and pipeline errors.
	ErrResourceCreation = errors.New("gpu: resource creation failed")

	// ErrShaderCompile is matched by *ShaderCompileError.
	ErrShaderCompile = errors.New("gpu: shader compilation failed")

	// ErrPipelineCreation is matched by *PipelineCreationError.
	ErrPipelineCreation = errors.New("gpu: pipeline creation failed")

	// ErrBindGroupMismatch is returned when bind group entries do not
	// structurally match the layout schema.
	ErrBindGroupMismatch = errors.New("gpu: bind group entries do not match layout")

	// ErrDuplicateBinding is returned when a layout declares a binding index twice.
	ErrDuplicateBinding = errors.New("gpu: duplicate binding index")

	// ErrInvalidBufferSize is returned when buffer size is invalid.
	ErrInvalidBufferSize = errors.New("gpu: invalid buffer size")

	// ErrBufferDestroyed is returned when operating on a destroyed buffer.
	ErrBufferDestroyed = errors.New("gpu: buffer has been destroyed")

	// ErrBufferOverflow is returned when a write exceeds the buffer capacity.
	ErrBufferOverflow = errors.New("gpu: write exceeds buffer size")
)

// ErrSubmission is returned when recording or submitting a frame fails.
var ErrSubmission = errors.New("gpu: queue submission failed")

// Stage identifies which setup or runtime step produced an error.
type Stage int

const (
	// StageAdapter covers instance, surface and adapter acquisition.
	StageAdapter Stage = iota
	// StageDevice covers logical device creation.
	StageDevice
	// StageSurface covers surface configuration.
	StageSurface
	// StageShader covers shader loading and compilation.
	StageShader
	// StagePipeline covers pipeline layout and render pipeline creation.
	StagePipeline
	// StageResource covers buffers, bind groups and render targets.
	StageResource
	// StageSubmit covers per-frame encoding, submission and presentation.
	StageSubmit
)

// String returns the stage name used in diagnostics.
func (s Stage) String() string {
	switch s {
	case StageAdapter:
		return "adapter"
	case StageDevice:
		return "device"
	case StageSurface:
		return "surface"
	case StageShader:
		return "shader"
	case StagePipeline:
		return "pipeline"
	case StageResource:
		return "resource"
	case StageSubmit:
		return "submit"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// StageError attaches the failing stage to an error so the host can report
// a single diagnostic naming it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Stage.String() + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// WithStage wraps err in a *StageError unless it already carries a stage.
func WithStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage recorded in err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}

// ResourceError reports a failed wrapper construction.
type ResourceError struct {
	Kind  string
	Label string
	Err   error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("create %s %q: %v", e.Kind, e.Label, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// Is reports ErrResourceCreation so callers can match the whole class.
func (e *ResourceError) Is(target error) bool { return target == ErrResourceCreation }

// ShaderCompileError carries the compiler (or loader) diagnostic for a
// shader module that could not be created.
type ShaderCompileError struct {
	Label      string
	Path       string
	Diagnostic string
	Err        error
}

func (e *ShaderCompileError) Error() string {
	name := e.Label
	if e.Path != "" {
		name = e.Path
	}
	return fmt.Sprintf("gpu: compile shader %q: %s", name, e.Diagnostic)
}

func (e *ShaderCompileError) Unwrap() error { return e.Err }

func (e *ShaderCompileError) Is(target error) bool {
	return target == ErrShaderCompile || target == ErrResourceCreation
}

// PipelineCreationError reports an incompatible or rejected pipeline
// configuration. It is never retried.
type PipelineCreationError struct {
	Label  string
	Reason string
	Err    error
}

func (e *PipelineCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gpu: create pipeline %q: %s: %v", e.Label, e.Reason, e.Err)
	}
	return fmt.Sprintf("gpu: create pipeline %q: %s", e.Label, e.Reason)
}

func (e *PipelineCreationError) Unwrap() error { return e.Err }

func (e *PipelineCreationError) Is(target error) bool {
	return target == ErrPipelineCreation || target == ErrResourceCreation
}
