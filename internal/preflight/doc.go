// Package preflight provides readiness checks for the filesystem paths
// and external tools that Reel depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs every failure as a
//     warning. Failures never block startup: a scheduled run may fire hours
//     later, after the operator has fixed the problem.
//   - The CLI "reel status" command surfaces the same results so the host
//     can be inspected without reading daemon logs.
package preflight
