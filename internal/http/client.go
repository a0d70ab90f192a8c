// Package http is the transport used by every entity: request building,
// basic authentication, CSRF crumbs, rate limiting, metrics and the
// classification of non-successful responses into *jenkins.HTTPError.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/auth"
	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Request is an outgoing request. Path is either an absolute URL or a path
// relative to the client's base URL. Body is encoded by type: []byte and
// string are sent as-is, url.Values as a form, anything else as JSON.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        interface{}
	ContentType string
	Headers     map[string]string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	URL        string
}

// Client performs requests against one server.
type Client struct {
	baseURL    string
	session    *auth.Session
	httpClient *retryablehttp.Client
	logger     Logger
	debug      bool
	userAgent  string
	useCrumb   bool
	limiter    *rate.Limiter
	metrics    *requestMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig enables transport retries for GET requests.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithCrumb sends a CSRF crumb with every POST.
func WithCrumb(useCrumb bool) Option {
	return func(c *Client) {
		c.useCrumb = useCrumb
	}
}

// WithRateLimit throttles requests to rps per second. Zero disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil

			return
		}

		if burst < 1 {
			burst = 1
		}

		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics records request counts and latencies on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg != nil {
			c.metrics = newRequestMetrics(reg)
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		if !skip {
			return
		}

		transport, ok := c.httpClient.HTTPClient.Transport.(*http.Transport)
		if ok {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for test servers
		}
	}
}

type noRetryKey struct{}

// NewClient creates a client. session may be nil for anonymous access
// without cookies.
func NewClient(baseURL string, session *auth.Session, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.CheckRetry = checkRetry
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.HTTPClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > 0 && via[0].Method == http.MethodPost {
			return http.ErrUseLastResponse
		}

		if len(via) >= constants.MaxRedirects {
			return fmt.Errorf("%w: stopped after %d redirects", jenkins.ErrContractViolation, len(via))
		}

		return nil
	}

	if session != nil {
		retryClient.HTTPClient.Jar = session
	}

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		session:    session,
		httpClient: retryClient,
		userAgent:  constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the client's session, nil for anonymous clients.
func (c *Client) Session() *auth.Session {
	return c.session
}

// Do executes req. For non-successful statuses both the response and a
// *jenkins.HTTPError are returned. POST requests are never redirected, so
// a 3xx answer to a POST counts as success.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	if req.ContentType != "" {
		contentType = req.ContentType
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}

	headers := map[string]string{}

	if req.Method == http.MethodPost && c.useCrumb {
		crumb, ok, crumbErr := c.ensureCrumb(ctx)
		if crumbErr != nil {
			return nil, fmt.Errorf("fetching crumb: %w", crumbErr)
		}

		if ok {
			headers[crumb.Field] = crumb.Value
		}
	}

	for key, value := range req.Headers {
		headers[key] = value
	}

	resp, err := c.send(ctx, req.Method, fullURL, body, contentType, headers)
	if err != nil {
		return nil, err
	}

	if successful(req.Method, resp.StatusCode) {
		if c.session != nil {
			c.session.MarkEstablished()
		}

		return resp, nil
	}

	if req.Method == http.MethodPost && resp.StatusCode == http.StatusForbidden && c.session != nil {
		c.session.ClearCrumb()
	}

	return resp, &jenkins.HTTPError{
		Method:     req.Method,
		URL:        fullURL,
		StatusCode: resp.StatusCode,
		Payload:    string(body),
		Body:       string(resp.Body),
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// GetDocument performs a GET request and decodes the JSON body.
func (c *Client) GetDocument(ctx context.Context, path string, query url.Values) (jenkins.Document, error) {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	doc, err := jenkins.ParseDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return doc, nil
}

// Post performs a POST request with a JSON (or raw) body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// PostQuery performs a POST request without a body.
func (c *Client) PostQuery(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Query: query})
}

// PostForm performs a form-encoded POST request.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: form})
}

// PostXML posts an XML document.
func (c *Client) PostXML(ctx context.Context, path string, query url.Values, xml string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        path,
		Query:       query,
		Body:        []byte(xml),
		ContentType: "application/xml",
	})
}

func (c *Client) send(ctx context.Context, method, fullURL string, body []byte, contentType string, headers map[string]string) (*Response, error) {
	if c.limiter != nil {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	if c.session != nil {
		err = c.session.Apply(httpReq.Request)
		if err != nil {
			return nil, fmt.Errorf("authenticating request: %w", err)
		}
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": method,
			"url":    fullURL,
		})
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)

	if err != nil {
		c.metrics.observe(method, "error", time.Since(start))

		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.metrics.observe(method, strconv.Itoa(httpResp.StatusCode), time.Since(start))

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      method,
			"url":         fullURL,
			"status_code": httpResp.StatusCode,
			"duration":    time.Since(start).String(),
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		URL:        fullURL,
	}, nil
}

func (c *Client) ensureCrumb(ctx context.Context) (auth.Crumb, bool, error) {
	if c.session == nil || c.session.CrumbDisabled() {
		return auth.Crumb{}, false, nil
	}

	if crumb, ok := c.session.Crumb(); ok {
		return crumb, true, nil
	}

	resp, err := c.send(ctx, http.MethodGet, c.baseURL+"/"+constants.CrumbIssuerPath, nil, "", nil)
	if err != nil {
		return auth.Crumb{}, false, err
	}

	if resp.StatusCode == http.StatusNotFound {
		c.session.DisableCrumb()

		if c.logger != nil {
			c.logger.Debug("crumb issuer not available, disabling crumbs", map[string]interface{}{
				"url": c.baseURL,
			})
		}

		return auth.Crumb{}, false, nil
	}

	if !successful(http.MethodGet, resp.StatusCode) {
		return auth.Crumb{}, false, &jenkins.HTTPError{
			Method:     http.MethodGet,
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}

	var crumb auth.Crumb

	err = json.Unmarshal(resp.Body, &crumb)
	if err != nil || crumb.Field == "" {
		return auth.Crumb{}, false, fmt.Errorf("%w: crumb response", jenkins.ErrMalformedPayload)
	}

	c.session.SetCrumb(crumb)

	return crumb, true, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}

	if len(query) == 0 {
		return raw, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid URL %q: %w", jenkins.ErrContractViolation, raw, err)
	}

	values := parsed.Query()

	for key, vals := range query {
		for _, v := range vals {
			values.Add(key, v)
		}
	}

	parsed.RawQuery = values.Encode()

	return parsed.String(), nil
}

func encodeBody(body interface{}) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "application/octet-stream", nil
	case string:
		return []byte(b), "text/plain; charset=utf-8", nil
	case url.Values:
		return []byte(b.Encode()), "application/x-www-form-urlencoded", nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}

		return data, "application/json", nil
	}
}

func successful(method string, status int) bool {
	if status >= 200 && status < 300 {
		return true
	}

	return method == http.MethodPost && status >= 300 && status < 400
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if noRetry, _ := ctx.Value(noRetryKey{}).(bool); noRetry {
		return false, ctx.Err()
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
