// Package viz draws scenes in the terminal.
//
// A [Canvas] packs 2x4 dots into each braille cell. [CanvasRenderer]
// implements render.Renderer on top of it through a [Camera], so the cloth
// and emitters draw themselves without knowing about the terminal. [Model]
// is the Bubble Tea live view and [RunInteractive] adds a preset menu in
// front of it.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild the scene
//	WASD  - Drag the pinned top edge (arrows work too)
//	X     - Tear a hole in the middle of the cloth
//	E     - Fire every emitter now
//	F/C/P - Toggle cloth, constraint and particle layers
//	?     - Show help overlay
package viz
