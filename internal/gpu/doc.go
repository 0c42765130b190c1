// Package gpu owns the device-facing half of the raymarch runtime.
//
// It wraps gogpu/wgpu HAL objects behind small, explicitly owned types:
//
//   - Context: instance, surface, adapter, device and queue acquisition
//   - Buffer, BindGroupLayout, BindGroup, PipelineLayout, ShaderModule:
//     validated constructors over raw device objects
//   - RenderPipelineBuilder: shader modules + layout into a RenderPipeline,
//     with "auto" layout derivation from reflected shader bindings
//   - RenderTargetManager: multisampled color and depth targets that follow
//     the presentation surface size
//   - FramePass: records and submits the single full-screen render pass
//
// Every object is created from a Context passed in by the caller. Nothing in
// this package holds a package-level device.
//
// # Ownership
//
// Each wrapper has exactly one owner and a Destroy method that is safe to call
// more than once. Objects are destroyed in reverse creation order, and every
// constructor releases what it created on its own error paths.
//
// # Logging
//
// The package logs through log/slog. Output is silent until SetLogger is
// called, which the root package does from raymarch.SetLogger.
package gpu
