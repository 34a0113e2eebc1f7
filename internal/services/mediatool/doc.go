// Package mediatool wraps the ffmpeg command line tool. It assembles
// transcode invocations from a declarative spec, streams ffmpeg's
// machine-readable progress (-progress pipe:1) back to a callback, and
// surfaces the stderr tail when a run fails.
package mediatool
