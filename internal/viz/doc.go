// Package viz is the terminal front end of the gradient descent lab.
//
// The [Model] is a Bubble Tea program over a [playback.Controller] and a
// [playback.Renderer]. Panels are drawn on a braille [Canvas]:
//
//   - current fit over the scatter, with the OLS line dashed
//   - fading history of visited lines
//   - parameter-space path over the loss contours (or the loss curve
//     for a slope-only model)
//   - MSE vs. iteration, drawn with asciigraph
//
// # Key Bindings
//
//	Space     - Play/Pause
//	R         - Reset to the first step
//	←/→ [ ]   - Step back/forward
//	PgUp/PgDn - Jump 10 steps
//	Home/End  - First/last step
//	D         - Toggle dynamic axis limits
//	T         - Cycle color themes
//	?         - Show help overlay
//	Q         - Quit
package viz
