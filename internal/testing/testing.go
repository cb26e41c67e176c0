// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
)

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// ScriptedRoundTripper replays a fixed sequence of responses, then repeats
// the last one. Useful for retry protocols.
type ScriptedRoundTripper struct {
	mu        sync.Mutex
	responses []*http.Response
	Requests  []*http.Request
}

func NewScriptedRoundTripper(responses ...*http.Response) *ScriptedRoundTripper {
	return &ScriptedRoundTripper{responses: responses}
}

func (s *ScriptedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)

	if len(s.responses) == 0 {
		return nil, errors.New("no scripted responses")
	}

	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

// JSONResponse builds an *http.Response with the given status and body.
func JSONResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
