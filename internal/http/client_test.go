package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/auth"
	jenkinshttp "github.com/fivetwenty-io/jenkins-client/internal/http"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/job/J1/api/json", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Accept"))

			user, pass, ok := request.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "admin", user)
			assert.Equal(t, "api-token", pass)

			response := map[string]string{"name": "J1", "color": "blue"}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		session := auth.NewSession("admin", "api-token")
		client := jenkinshttp.NewClient(server.URL, session)

		req := &jenkinshttp.Request{
			Method: "GET",
			Path:   "/job/J1/api/json",
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.True(t, session.Established())

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "J1", result["name"])
	})

	t.Run("absolute URL with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/job/J1/api/json", request.URL.Path)
			assert.Equal(t, "depth=1&tree=builds%5Bnumber%5D", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), server.URL+"/job/J1/api/json?depth=1", url.Values{"tree": []string{"builds[number]"}})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with JSON body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "J1", body["name"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil)

		resp, err := client.Post(context.Background(), "/createItem", map[string]string{"name": "J1"})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte("no such job"))
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/job/missing/api/json", nil)
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, jenkins.IsNotFound(err))

		var httpErr *jenkins.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, server.URL+"/job/missing/api/json", httpErr.URL)
		assert.Equal(t, "no such job", httpErr.Body)
	})

	t.Run("error response carries payload", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil)

		_, err := client.PostXML(context.Background(), "/createItem", url.Values{"name": {"J1"}}, "<project/>")
		require.Error(t, err)

		var httpErr *jenkins.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, "<project/>", httpErr.Payload)
		assert.Equal(t, 400, httpErr.StatusCode)
		assert.Contains(t, httpErr.URL, "name=J1")
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "test-agent", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithUserAgent("test-agent"))

		req := &jenkinshttp.Request{
			Method: "GET",
			Path:   "/api/json",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
			},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithLogger(logger), jenkinshttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/api/json", nil)
		require.NoError(t, err)

		// Should have logged request and response
		assert.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})
}

func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		fn          func(*jenkinshttp.Client, context.Context) (*jenkinshttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *jenkinshttp.Client, ctx context.Context) (*jenkinshttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:        "POST",
			method:      "POST",
			contentType: "application/json",
			body:        `{"key":"value"}`,
			fn: func(c *jenkinshttp.Client, ctx context.Context) (*jenkinshttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:        "POST form",
			method:      "POST",
			contentType: "application/x-www-form-urlencoded",
			body:        "key=value",
			fn: func(c *jenkinshttp.Client, ctx context.Context) (*jenkinshttp.Response, error) {
				return c.PostForm(ctx, "/test", url.Values{"key": {"value"}})
			},
		},
		{
			name:        "POST xml",
			method:      "POST",
			contentType: "application/xml",
			body:        "<project/>",
			fn: func(c *jenkinshttp.Client, ctx context.Context) (*jenkinshttp.Response, error) {
				return c.PostXML(ctx, "/test", nil, "<project/>")
			},
		},
		{
			name:   "POST query",
			method: "POST",
			fn: func(c *jenkinshttp.Client, ctx context.Context) (*jenkinshttp.Response, error) {
				return c.PostQuery(ctx, "/test", url.Values{"offlineMessage": {"maintenance"}})
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)

				if testCase.contentType != "" {
					assert.Equal(t, testCase.contentType, request.Header.Get("Content-Type"))
				}

				body, _ := io.ReadAll(request.Body)
				assert.Equal(t, testCase.body, strings.TrimSpace(string(body)))
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := jenkinshttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries GET on 5xx errors", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts++
			if attempts < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 3, attempts)
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts++
			if attempts < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 2, attempts)
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts++

			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, 1, attempts) // Should not retry
	})

	t.Run("does not retry POST", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts++

			writer.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.PostQuery(context.Background(), "/job/J1/build", nil)
		require.Error(t, err)
		assert.Equal(t, 500, resp.StatusCode)
		assert.Equal(t, 1, attempts)
		assert.True(t, jenkins.IsTransient(err))
	})
}

func TestClient_PostRedirect(t *testing.T) {
	t.Parallel()

	followed := false

	mux := http.NewServeMux()
	mux.HandleFunc("/job/J1/doDelete", func(writer http.ResponseWriter, request *http.Request) {
		http.Redirect(writer, request, "/", http.StatusFound)
	})
	mux.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		followed = true
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := jenkinshttp.NewClient(server.URL, nil)

	resp, err := client.PostQuery(context.Background(), "/job/J1/doDelete", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.False(t, followed)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Crumb(t *testing.T) {
	t.Parallel()

	t.Run("fetched once and sent with every POST", func(t *testing.T) {
		t.Parallel()

		crumbRequests := 0

		mux := http.NewServeMux()
		mux.HandleFunc("/crumbIssuer/api/json", func(writer http.ResponseWriter, request *http.Request) {
			crumbRequests++
			_ = json.NewEncoder(writer).Encode(map[string]string{
				"crumbRequestField": "Jenkins-Crumb",
				"crumb":             "c0ffee",
			})
		})
		mux.HandleFunc("/job/J1/build", func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "c0ffee", request.Header.Get("Jenkins-Crumb"))
			writer.WriteHeader(http.StatusCreated)
		})
		mux.HandleFunc("/job/J1/api/json", func(writer http.ResponseWriter, request *http.Request) {
			assert.Empty(t, request.Header.Get("Jenkins-Crumb"))
			_, _ = writer.Write([]byte(`{}`))
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		client := jenkinshttp.NewClient(server.URL, auth.NewSession("admin", "t"), jenkinshttp.WithCrumb(true))

		for range 3 {
			_, err := client.PostQuery(context.Background(), "/job/J1/build", nil)
			require.NoError(t, err)
		}

		_, err := client.Get(context.Background(), "/job/J1/api/json", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, crumbRequests)
	})

	t.Run("missing issuer disables crumbs", func(t *testing.T) {
		t.Parallel()

		crumbRequests := 0

		mux := http.NewServeMux()
		mux.HandleFunc("/crumbIssuer/api/json", func(writer http.ResponseWriter, request *http.Request) {
			crumbRequests++

			writer.WriteHeader(http.StatusNotFound)
		})
		mux.HandleFunc("/job/J1/build", func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusCreated)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		session := auth.NewSession("admin", "t")
		client := jenkinshttp.NewClient(server.URL, session, jenkinshttp.WithCrumb(true))

		for range 2 {
			_, err := client.PostQuery(context.Background(), "/job/J1/build", nil)
			require.NoError(t, err)
		}

		assert.Equal(t, 1, crumbRequests)
		assert.True(t, session.CrumbDisabled())
	})

	t.Run("forbidden POST clears the cached crumb", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/crumbIssuer/api/json", func(writer http.ResponseWriter, request *http.Request) {
			_ = json.NewEncoder(writer).Encode(map[string]string{
				"crumbRequestField": "Jenkins-Crumb",
				"crumb":             "stale",
			})
		})
		mux.HandleFunc("/job/J1/build", func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusForbidden)
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		session := auth.NewSession("admin", "t")
		client := jenkinshttp.NewClient(server.URL, session, jenkinshttp.WithCrumb(true))

		_, err := client.PostQuery(context.Background(), "/job/J1/build", nil)
		require.Error(t, err)
		assert.True(t, jenkins.IsNotAuthorized(err))

		_, ok := session.Crumb()
		assert.False(t, ok)
	})
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodPost {
			writer.WriteHeader(http.StatusInternalServerError)

			return
		}

		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()
	client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithMetrics(registry))
	// A second client on the same registry shares the collectors.
	other := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithMetrics(registry))

	_, err := client.Get(context.Background(), "/api/json", nil)
	require.NoError(t, err)
	_, err = other.Get(context.Background(), "/api/json", nil)
	require.NoError(t, err)
	_, err = client.PostQuery(context.Background(), "/quietDown", nil)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(registry, "jenkins_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(registry, "jenkins_client_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClient_RateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := jenkinshttp.NewClient(server.URL, nil, jenkinshttp.WithRateLimit(0.001, 1))

	_, err := client.Get(context.Background(), "/api/json", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Get(ctx, "/api/json", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestClient_ClosedSession(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session := auth.NewSession("admin", "t")
	client := jenkinshttp.NewClient(server.URL, session)
	require.NoError(t, session.Close())

	_, err := client.Get(context.Background(), "/api/json", nil)
	require.ErrorIs(t, err, auth.ErrSessionClosed)
}
