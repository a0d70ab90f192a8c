// Package jenkinsclient provides the main entry point for creating Jenkins clients
package jenkinsclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/jenkins-client/internal/client"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// DevModeEnv must be "true" or "1" for SkipTLSVerify to be honored.
const DevModeEnv = "JENKINS_DEV_MODE"

// New creates a new Jenkins client. Unless config.Lazy is set the root
// snapshot is fetched before returning.
func New(ctx context.Context, config *jenkins.Config) (jenkins.Jenkins, error) {
	if config == nil {
		return nil, jenkins.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, jenkins.ErrBaseURLRequired
	}

	config.BaseURL = NormalizeURL(config.BaseURL)

	if config.SkipTLSVerify && !isDevelopmentEnvironment() {
		return nil, fmt.Errorf("%w (set %s=true)", jenkins.ErrSkipTLSOnlyInDev, DevModeEnv)
	}

	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeURL trims a trailing slash and defaults the scheme to https.
func NormalizeURL(baseURL string) string {
	normalized := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}

	return normalized
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv(DevModeEnv)

	return devMode == "true" || devMode == "1"
}

// NewWithURL creates an anonymous client.
func NewWithURL(ctx context.Context, baseURL string) (jenkins.Jenkins, error) {
	return New(ctx, &jenkins.Config{
		BaseURL: baseURL,
	})
}

// NewWithToken creates a client authenticating with a user's API token.
func NewWithToken(ctx context.Context, baseURL, username, apiToken string) (jenkins.Jenkins, error) {
	return New(ctx, &jenkins.Config{
		BaseURL:  baseURL,
		Username: username,
		APIToken: apiToken,
	})
}

// NewWithCrumb creates an authenticated client that sends CSRF crumbs on
// every POST, as servers with CSRF protection require.
func NewWithCrumb(ctx context.Context, baseURL, username, apiToken string) (jenkins.Jenkins, error) {
	return New(ctx, &jenkins.Config{
		BaseURL:  baseURL,
		Username: username,
		APIToken: apiToken,
		UseCrumb: true,
	})
}
