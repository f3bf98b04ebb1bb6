// Package gateway executes authenticated calls against the remote REST API.
//
// Every call runs the same small state machine: send with the current
// bearer token; on 2xx hand the body to the success handler; on 401 ask the
// session for exactly one refresh and replay the identical request; on any
// other failure hand a *RequestError to the error handler, or return it
// when there is none. The retry counter is capped at one, so a second 401
// surfaces as a failure instead of looping.
//
// Response bodies are read fully and closed before any handler runs.
package gateway
