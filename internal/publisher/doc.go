// Package publisher runs the Publish step: it uploads the cleaned
// video with the planned metadata and returns the published video's
// identifier and watch URL.
package publisher
