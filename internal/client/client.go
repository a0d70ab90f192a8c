package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/auth"
	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/internal/http"
	"github.com/fivetwenty-io/jenkins-client/internal/retry"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired = jenkins.ErrBaseURLRequired
	ErrNoVersionHeader = errors.New("server did not report a version")
)

var _ jenkins.Jenkins = (*Client)(nil)

// Client implements jenkins.Jenkins. It is the root of the object graph:
// every entity resolved through it holds a non-owning pointer back to it
// for transport, retries, logging and event publishing.
type Client struct {
	resource

	http    *http.Client
	session *auth.Session
	retry   *retry.Executor
	logger  jenkins.Logger
	events  jenkins.EventPublisher
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *jenkins.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.TransportRetryMax > 0 {
		httpOpts = append(httpOpts, http.WithRetryConfig(config.TransportRetryMax,
			constants.DefaultTransportRetryWaitMin, constants.DefaultTransportRetryWaitMax))
	}

	if config.RateLimit > 0 {
		httpOpts = append(httpOpts, http.WithRateLimit(config.RateLimit, constants.DefaultRateBurst))
	}

	if config.MetricsRegisterer != nil {
		httpOpts = append(httpOpts, http.WithMetrics(config.MetricsRegisterer))
	}

	httpOpts = append(httpOpts,
		http.WithCrumb(config.UseCrumb),
		http.WithInsecureSkipVerify(config.SkipTLSVerify),
	)

	return httpOpts
}

// New creates the root entity. Unless config.Lazy is set the root snapshot
// is fetched before New returns, and a fetch failure fails construction.
func New(ctx context.Context, config *jenkins.Config) (*Client, error) {
	if config == nil {
		return nil, jenkins.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	session := auth.NewSession(config.Username, config.APIToken)
	httpClient := http.NewClient(config.BaseURL, session, createHTTPClientOptions(config)...)

	return newClient(ctx, config, httpClient, session)
}

func newClient(ctx context.Context, config *jenkins.Config, httpClient *http.Client, session *auth.Session) (*Client, error) {
	var logger jenkins.Logger = jenkins.NoOpLogger{}
	if config.Logger != nil {
		logger = config.Logger
	}

	attempts := config.RetryAttempts
	if attempts <= 0 {
		attempts = constants.DefaultRetryAttempts
	}

	delay := config.RetryDelay
	if delay == 0 {
		delay = constants.DefaultRetryDelay
	}

	client := &Client{
		http:    httpClient,
		session: session,
		logger:  logger,
		events:  config.Events,
		retry: retry.New(attempts, delay,
			retry.WithFatal(func(err error) bool { return !jenkins.IsTransient(err) }),
			retry.WithLogger(logger),
		),
	}

	client.init(client, "Jenkins", httpClient.BaseURL(), httpClient.BaseURL(), nil)
	client.fetch = client.fetchRoot

	if config.Lazy {
		return client, nil
	}

	err := client.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// fetchRoot loads the root document and flattens jobs inside folders into
// "folder/job" entries.
func (c *Client) fetchRoot(ctx context.Context) (jenkins.Document, error) {
	doc, err := c.http.GetDocument(ctx, jenkins.APIURL(c.baseURL), nil)
	if err != nil {
		return nil, err
	}

	jobs, err := c.flattenJobs(ctx, doc.ListOrEmpty("jobs"), "")
	if err != nil {
		return nil, err
	}

	flat := make([]any, 0, len(jobs))
	for _, job := range jobs {
		flat = append(flat, map[string]any(job))
	}

	doc["jobs"] = flat

	return doc, nil
}

func (c *Client) flattenJobs(ctx context.Context, entries []jenkins.Document, prefix string) ([]jenkins.Document, error) {
	out := make([]jenkins.Document, 0, len(entries))

	for _, entry := range entries {
		name := entry.StringOr("", "name")
		jobURL := entry.StringOr("", "url")

		if name == "" || jobURL == "" {
			continue
		}

		if _, isJob := entry["color"]; isJob {
			out = append(out, jenkins.Document{"name": prefix + name, "url": jobURL, "color": entry["color"]})

			continue
		}

		folder, err := c.http.GetDocument(ctx, jenkins.APIURL(jobURL), url.Values{"tree": {"jobs[name,url,color]"}})
		if err != nil {
			return nil, fmt.Errorf("listing folder %s: %w", prefix+name, err)
		}

		children := folder.ListOrEmpty("jobs")
		if len(children) == 0 {
			out = append(out, jenkins.Document{"name": prefix + name, "url": jobURL})

			continue
		}

		nested, err := c.flattenJobs(ctx, children, prefix+name+"/")
		if err != nil {
			return nil, err
		}

		out = append(out, nested...)
	}

	return out, nil
}

// String implements fmt.Stringer.
func (c *Client) String() string {
	return "Jenkins server at " + c.baseURL
}

// Version implements jenkins.Jenkins.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.http.Get(ctx, jenkins.APIURL(c.baseURL), url.Values{"tree": {"mode"}})
	if err != nil {
		return "", fmt.Errorf("getting version: %w", err)
	}

	version := resp.Headers.Get(constants.VersionHeader)
	if version == "" {
		return "", &jenkins.MissingFieldError{Entity: c.String(), Path: constants.VersionHeader, Reason: ErrNoVersionHeader.Error()}
	}

	return version, nil
}

// Jobs implements jenkins.Jenkins.
func (c *Client) Jobs() jenkins.Jobs {
	return &Jobs{root: c}
}

// Views implements jenkins.Jenkins.
func (c *Client) Views() jenkins.Views {
	return &Views{root: c, owner: c}
}

// Nodes implements jenkins.Jenkins.
func (c *Client) Nodes(ctx context.Context) (jenkins.Nodes, error) {
	nodes, err := newNodes(ctx, c)
	if err != nil {
		return nil, err
	}

	return nodes, nil
}

// Queue implements jenkins.Jenkins.
func (c *Client) Queue(ctx context.Context) (jenkins.Queue, error) {
	queue, err := newQueue(ctx, c)
	if err != nil {
		return nil, err
	}

	return queue, nil
}

// Plugins implements jenkins.Jenkins.
func (c *Client) Plugins(ctx context.Context) (jenkins.Plugins, error) {
	plugins, err := newPlugins(ctx, c)
	if err != nil {
		return nil, err
	}

	return plugins, nil
}

// Credentials implements jenkins.Jenkins.
func (c *Client) Credentials(ctx context.Context) (jenkins.Credentials, error) {
	creds, err := newCredentials(ctx, c)
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// Label implements jenkins.Jenkins.
func (c *Client) Label(ctx context.Context, name string) (jenkins.Label, error) {
	label, err := newLabel(ctx, c, name)
	if err != nil {
		return nil, err
	}

	return label, nil
}

// Fingerprint implements jenkins.Jenkins.
func (c *Client) Fingerprint(ctx context.Context, id string) (jenkins.Fingerprint, error) {
	fp := newFingerprint(c, id)

	_, err := fp.Valid(ctx)
	if err != nil {
		return nil, err
	}

	return fp, nil
}

// Job implements jenkins.Jenkins.
func (c *Client) Job(ctx context.Context, name string) (jenkins.Job, error) {
	return c.Jobs().Get(ctx, name)
}

// Build implements jenkins.Jenkins.
func (c *Client) Build(ctx context.Context, jobName string, number int) (jenkins.Build, error) {
	job, err := c.Job(ctx, jobName)
	if err != nil {
		return nil, err
	}

	return job.Build(ctx, number)
}

// QuietDown implements jenkins.Jenkins.
func (c *Client) QuietDown(ctx context.Context) error {
	_, err := c.http.PostQuery(ctx, c.endpoint(constants.QuietDownPath), nil)
	if err != nil {
		return fmt.Errorf("requesting quiet down: %w", err)
	}

	return c.Refresh(ctx)
}

// CancelQuietDown implements jenkins.Jenkins.
func (c *Client) CancelQuietDown(ctx context.Context) error {
	_, err := c.http.PostQuery(ctx, c.endpoint(constants.CancelQuietDownPath), nil)
	if err != nil {
		return fmt.Errorf("cancelling quiet down: %w", err)
	}

	return c.Refresh(ctx)
}

// IsQuietingDown implements jenkins.Jenkins.
func (c *Client) IsQuietingDown() bool {
	return c.Snapshot().BoolOr(false, "quietingDown")
}

// Close implements jenkins.Jenkins.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}

	return c.session.Close()
}

// publish notifies the event publisher. Failures are logged only.
func (c *Client) publish(ctx context.Context, kind, action, name, entityURL string) {
	if c.events == nil {
		return
	}

	event := jenkins.Event{
		Kind:   kind,
		Action: action,
		Name:   name,
		URL:    entityURL,
		Time:   time.Now().UTC(),
	}

	err := c.events.Publish(ctx, event)
	if err != nil {
		c.logger.Warn("failed to publish event", map[string]interface{}{
			"kind":   kind,
			"action": action,
			"name":   name,
			"error":  err.Error(),
		})
	}
}

// jobURL derives a job's URL from its (possibly folder-qualified) name.
func (c *Client) jobURL(name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return c.baseURL + "job/" + strings.Join(parts, "/job/") + "/"
}

// parentURL returns the URL of the folder holding name, or the root.
func (c *Client) parentURL(name string) (string, string) {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return c.baseURL, name
	}

	return c.jobURL(name[:idx]), name[idx+1:]
}
