// Package cleaner runs the Clean step: watermark removal over an
// ordered strategy chain (delogo over the configured rectangle first,
// then a crop and scale-back pass), with an optional enhancement pass
// folded into the same step. The step fails only when every removal
// strategy fails; a failed enhancement keeps the cleaned video.
package cleaner
