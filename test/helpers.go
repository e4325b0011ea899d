package test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// FakeInferenceServer mimics the streaming generate endpoint: every
// request answers with the configured text as a single SSE chunk.
// Requests to keys listed in Exhausted get 429 instead.
type FakeInferenceServer struct {
	Server   *httptest.Server
	Answer   string
	Requests atomic.Int64

	exhausted map[string]bool
}

func NewFakeInferenceServer(t *testing.T, answer string, exhaustedKeys ...string) *FakeInferenceServer {
	t.Helper()

	f := &FakeInferenceServer{
		Answer:    answer,
		exhausted: make(map[string]bool, len(exhaustedKeys)),
	}
	for _, k := range exhaustedKeys {
		f.exhausted[k] = true
	}

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The online probe issues HEAD requests
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}

		f.Requests.Add(1)
		if f.exhausted[r.Header.Get("x-goog-api-key")] {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}]}}]}\n\n", f.Answer)
	}))
	t.Cleanup(f.Server.Close)

	return f
}

func (f *FakeInferenceServer) URL() string {
	return f.Server.URL
}
