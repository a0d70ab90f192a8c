package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Test static errors.
var (
	ErrTestPublish = errors.New("publish failed")
)

// fakeJenkins serves canned API documents and records every request.
// Documents are keyed by entity path ("/job/J1/"); the api/json suffix is
// added when they are served.
type fakeJenkins struct {
	t      *testing.T
	server *httptest.Server

	mutex    sync.Mutex
	docs     map[string]any
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	requests []string
}

func newFakeJenkins(t *testing.T) *fakeJenkins {
	t.Helper()

	f := &fakeJenkins{
		t:        t,
		docs:     make(map[string]any),
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}

	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)

	f.setDoc("/", map[string]any{
		"mode":         "NORMAL",
		"quietingDown": false,
		"jobs":         []any{},
		"views":        []any{},
	})

	return f
}

// URL returns the server root with a trailing slash.
func (f *fakeJenkins) URL() string {
	return f.server.URL + "/"
}

func (f *fakeJenkins) setDoc(path string, doc any) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.docs[strings.TrimSuffix(path, "/")+"/api/json"] = doc
}

func (f *fakeJenkins) hasDoc(path string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	_, ok := f.docs[strings.TrimSuffix(path, "/")+"/api/json"]

	return ok
}

// handle overrides the response for one method and path (without query).
func (f *fakeJenkins) handle(method, path string, h http.HandlerFunc) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.handlers[method+" "+path] = h
}

// count returns how many requests hit method and path.
func (f *fakeJenkins) count(method, path string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.calls[method+" "+path]
}

// posts returns every POST in arrival order as "path?query".
func (f *fakeJenkins) posts() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	var out []string

	for _, r := range f.requests {
		if strings.HasPrefix(r, http.MethodPost+" ") {
			out = append(out, strings.TrimPrefix(r, http.MethodPost+" "))
		}
	}

	return out
}

func (f *fakeJenkins) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	f.mutex.Lock()
	f.calls[key]++

	entry := r.URL.Path
	if r.URL.RawQuery != "" {
		entry += "?" + r.URL.RawQuery
	}

	f.requests = append(f.requests, r.Method+" "+entry)
	handler := f.handlers[key]
	doc, ok := f.docs[r.URL.Path]
	f.mutex.Unlock()

	if handler != nil {
		handler(w, r)

		return
	}

	if r.Method == http.MethodPost {
		w.WriteHeader(http.StatusOK)

		return
	}

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))

		return
	}

	writeJSON(w, doc)
}

func writeJSON(w http.ResponseWriter, doc any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// client builds a root entity against the fake with fast retries.
func (f *fakeJenkins) client(opts ...func(*jenkins.Config)) *Client {
	f.t.Helper()

	cfg := &jenkins.Config{
		BaseURL:       f.server.URL,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	c, err := New(context.Background(), cfg)
	require.NoError(f.t, err)

	return c
}

// withJobs lists jobs in the root document.
func (f *fakeJenkins) withJobs(names ...string) {
	jobs := make([]any, 0, len(names))
	for _, name := range names {
		jobs = append(jobs, map[string]any{"name": name, "url": f.URL() + "job/" + name + "/", "color": "blue"})
	}

	f.setDoc("/", map[string]any{"jobs": jobs, "views": []any{}})
}

// jobDoc is a minimal job document with the given build numbers, newest
// first.
func (f *fakeJenkins) jobDoc(name string, builds ...int) map[string]any {
	jobURL := f.URL() + "job/" + name + "/"

	list := make([]any, 0, len(builds))
	for _, n := range builds {
		list = append(list, map[string]any{"number": n, "url": jobURL + strconv.Itoa(n) + "/"})
	}

	doc := map[string]any{
		"name":               name,
		"url":                jobURL,
		"color":              "blue",
		"inQueue":            false,
		"builds":             list,
		"downstreamProjects": []any{},
		"upstreamProjects":   []any{},
	}

	if len(builds) > 0 {
		doc["firstBuild"] = map[string]any{"number": builds[len(builds)-1]}
		doc["lastBuild"] = map[string]any{"number": builds[0]}
	}

	return doc
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mutex  sync.Mutex
	events []jenkins.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event jenkins.Event) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) actions() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind+"."+e.Action)
	}

	return out
}

// MockLogger records log calls.
type MockLogger struct {
	mutex    sync.Mutex
	Messages []string
}

func (m *MockLogger) record(level, msg string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.Messages = append(m.Messages, level+": "+msg)
}

func (m *MockLogger) Debug(msg string, _ map[string]interface{}) { m.record("DEBUG", msg) }
func (m *MockLogger) Info(msg string, _ map[string]interface{})  { m.record("INFO", msg) }
func (m *MockLogger) Warn(msg string, _ map[string]interface{})  { m.record("WARN", msg) }
func (m *MockLogger) Error(msg string, _ map[string]interface{}) { m.record("ERROR", msg) }
