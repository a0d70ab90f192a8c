package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkinsclient"
)

// testServer serves canned API documents keyed by entity path and lets a
// test install handlers for individual "METHOD /path" keys.
type testServer struct {
	server *httptest.Server

	mutex    sync.Mutex
	docs     map[string]any
	handlers map[string]http.HandlerFunc
	posts    []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		docs:     make(map[string]any),
		handlers: make(map[string]http.HandlerFunc),
	}

	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)

	return s
}

func (s *testServer) url(path string) string {
	return s.server.URL + path
}

func (s *testServer) setDoc(path string, doc any) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.docs[strings.TrimSuffix(path, "/")+"/api/json"] = doc
}

func (s *testServer) handle(key string, handler http.HandlerFunc) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.handlers[key] = handler
}

func (s *testServer) postCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.posts)
}

func (s *testServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mutex.Lock()
	handler := s.handlers[r.Method+" "+r.URL.Path]
	doc, ok := s.docs[r.URL.Path]

	if r.Method == http.MethodPost {
		s.posts = append(s.posts, r.URL.Path)
	}
	s.mutex.Unlock()

	switch {
	case handler != nil:
		handler(w, r)
	case r.Method == http.MethodPost:
		w.WriteHeader(http.StatusOK)
	case !ok:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}
}

// client connects to the server once the root document is in place.
func (s *testServer) client(t *testing.T) jenkins.Jenkins {
	t.Helper()

	client, err := jenkinsclient.New(context.Background(), &jenkins.Config{
		BaseURL:    s.server.URL,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
