// Package videogen talks to an OpenAI-style asynchronous video
// generation API: submit a render job, poll its status until it
// reaches a terminal state, then download the finished artifact.
//
// Jobs render for minutes, so Await tolerates a short run of
// transient poll failures and reports sub-progress to a callback as
// the API advances the job.
package videogen
