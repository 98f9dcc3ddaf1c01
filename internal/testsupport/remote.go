package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RemoteCall records one function invocation received by the fake endpoint.
type RemoteCall struct {
	Function string
	Params   map[string]any
}

// FakeRemote is an httptest-backed stand-in for the remote function
// endpoint. Handlers are registered per function name; unregistered
// functions answer with a success envelope and a null result.
type FakeRemote struct {
	Server *httptest.Server

	mu       sync.Mutex
	calls    []RemoteCall
	handlers map[string]func(params map[string]any) (any, string)
}

// NewFakeRemote starts the fake endpoint and registers cleanup.
func NewFakeRemote(t testing.TB) *FakeRemote {
	t.Helper()

	fake := &FakeRemote{handlers: make(map[string]func(map[string]any) (any, string))}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Server.Close)
	return fake
}

// URL returns the endpoint base URL.
func (f *FakeRemote) URL() string {
	return f.Server.URL
}

// Handle registers a handler for one function. The handler returns the
// result payload and an error message; a non-empty message produces a
// failure envelope.
func (f *FakeRemote) Handle(function string, handler func(params map[string]any) (any, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[function] = handler
}

// Fail makes every invocation of the function return the given error.
func (f *FakeRemote) Fail(function, message string) {
	f.Handle(function, func(map[string]any) (any, string) {
		return nil, message
	})
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRemote) Calls() []RemoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RemoteCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded invocations of one function.
func (f *FakeRemote) CallsTo(function string) []RemoteCall {
	var out []RemoteCall
	for _, call := range f.Calls() {
		if call.Function == function {
			out = append(out, call)
		}
	}
	return out
}

func (f *FakeRemote) serve(w http.ResponseWriter, r *http.Request) {
	var request map[string]any
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	function, _ := request["function"].(string)
	delete(request, "function")

	f.mu.Lock()
	f.calls = append(f.calls, RemoteCall{Function: function, Params: request})
	handler := f.handlers[function]
	f.mu.Unlock()

	envelope := map[string]any{"success": true, "result": nil}
	if handler != nil {
		result, errMessage := handler(request)
		if errMessage != "" {
			envelope = map[string]any{"success": false, "error": errMessage}
		} else {
			envelope["result"] = result
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope)
}
