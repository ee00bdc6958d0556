// Package dispatch owns the REPL command loop: it turns typed lines into
// broker requests, runs one exchange per command and renders the outcome.
//
// The dispatcher is single-threaded. Its line reader and exchanger are
// injected once and owned for the life of the process.
package dispatch
