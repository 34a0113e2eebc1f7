// Package pipeline executes the fixed content pipeline: plan, generate,
// clean, publish.
//
// The Runner owns one run at a time. It drives the four collaborator
// interfaces strictly in order, feeding each step's output into the next,
// tracking per-step state on the Run model, and reporting progress to a
// ProgressSink. A step failure terminates the run; steps not yet started
// are marked skipped and the ledger is left untouched. Only a fully
// successful run records its publish in the upload ledger, which is what
// the scheduler consults to keep publishes to one per day.
//
// Collaborator contracts are defined here and implemented by the planner,
// generator, cleaner, and publisher packages; the daemon wires them up.
package pipeline
