// Package viz draws XPBD scenes in the terminal.
//
// Bodies are drawn as outlines on a braille [Canvas], which gives 2x4
// sub-pixels per cell. A [Viewport] maps world units onto it with y up.
//
//   - [Model]: live view that steps a simulator at 60 Hz
//   - [RunInteractive]: scene picker that opens the live view
//   - [Theme]: colour schemes, cycled with T
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	.     - Single step while paused
//	R     - Rebuild the scene
//	F     - Toggle gravity
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	+/-   - Zoom, arrows pan, 0 resets
//	[]    - Time travel (rewind/forward)
//	?     - Show help overlay
package viz
