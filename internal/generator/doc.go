// Package generator runs the Generate step: it submits the planned
// prompt to the video generation API, waits for the render to finish
// while forwarding job progress to the step, and downloads the
// artifact into the temp directory.
package generator
