package testutil

import (
	"io"
	"net/http"
	"sync"
)

// Response is one scripted HTTP response.
type Response struct {
	Status int
	Body   string
}

// Recorded is a request received by a Responder.
type Recorded struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	RequestID     string
	Body          string
}

// Responder is an http.Handler that replies with scripted responses in
// order and records every request. Once the script is exhausted the last
// response repeats.
//
// Thread-safety: Responder is safe for concurrent use via internal mutex.
type Responder struct {
	mu        sync.Mutex
	responses []Response
	requests  []Recorded
}

// NewResponder creates a responder for the given script.
func NewResponder(responses ...Response) *Responder {
	return &Responder{responses: responses}
}

// ServeHTTP implements http.Handler.
func (r *Responder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	idx := len(r.requests)
	r.requests = append(r.requests, Recorded{
		Method:        req.Method,
		Path:          req.URL.Path,
		RawQuery:      req.URL.RawQuery,
		Authorization: req.Header.Get("Authorization"),
		RequestID:     req.Header.Get("X-Request-Id"),
		Body:          string(body),
	})
	resp := Response{Status: http.StatusNotFound}
	switch {
	case idx < len(r.responses):
		resp = r.responses[idx]
	case len(r.responses) > 0:
		resp = r.responses[len(r.responses)-1]
	}
	r.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

// Requests returns a copy of the recorded requests.
func (r *Responder) Requests() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.requests))
	copy(out, r.requests)
	return out
}
