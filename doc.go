// Package raymarch renders a full-screen ray-marched scene on a GPU surface.
//
// A Renderer owns the whole GPU side of the program: the device and
// presentation surface, a 48-byte uniform buffer, the shader modules and
// render pipeline, and the multisampled color and depth targets. Each frame
// it advances the elapsed time, copies the camera pose into the uniform
// buffer, and draws one triangle that covers the screen. The fragment shader
// does the rest.
//
// # Quick Start
//
//	r := raymarch.New(backend)
//	if err := r.Start(ctx, raymarch.SurfaceTarget{Width: 800, Height: 600}); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	r.Camera().Attach(events) // wheel zoom, drag to rotate, WASD to move
//	r.ObserveResize(events)
//
//	err := r.Run(ctx, frame.NewIntervalTicker(time.Second/60))
//
// # Shaders
//
// The default vertex and fragment shaders are embedded. WithShaderDir or
// WithShaderFS replace them with WGSL files that declare the same uniform
// block at group 0, binding 0. ReloadShaders swaps them at runtime; a
// failed reload keeps the previous pipeline.
//
// # Errors
//
// Setup failures are *StageError values naming the step that failed
// (adapter, device, surface, shader, pipeline, resource). Frame failures
// wrap ErrSubmission and stop Run.
//
// # Logging
//
// Nothing is logged by default. See SetLogger.
package raymarch
