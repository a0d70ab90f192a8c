package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkinsclient"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// clientConfigFrom builds the client configuration from flags, the config
// file and JENKINS_* environment variables.
func clientConfigFrom(v *viper.Viper) (*jenkins.Config, error) {
	url := v.GetString("url")
	if url == "" {
		return nil, constants.ErrNoURLConfigured
	}

	verbose := v.GetBool("verbose")

	return &jenkins.Config{
		BaseURL:       url,
		Username:      v.GetString("username"),
		APIToken:      v.GetString("token"),
		UseCrumb:      v.GetBool("use-crumb"),
		SkipTLSVerify: v.GetBool("skip-ssl-validation"),
		Debug:         verbose,
		Logger:        NewSlogLogger(os.Stderr, verbose),
	}, nil
}

// CreateClient builds a client from the global configuration. The returned
// cleanup closes the session and any event connection.
func CreateClient(ctx context.Context) (jenkins.Jenkins, func(), error) {
	config, err := clientConfigFrom(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	if viper.GetBool("ask-token") {
		config.APIToken, err = readToken()
		if err != nil {
			return nil, nil, err
		}
	}

	events, closeEvents, err := connectEvents(viper.GetString("nats-url"), viper.GetString("nats-prefix"))
	if err != nil {
		return nil, nil, err
	}

	config.Events = events

	client, err := jenkinsclient.New(ctx, config)
	if err != nil {
		closeEvents()

		return nil, nil, err
	}

	return client, func() {
		_ = client.Close()

		closeEvents()
	}, nil
}

func readToken() (string, error) {
	fmt.Fprint(os.Stderr, "API token: ")

	tokenBytes, err := term.ReadPassword(int(syscall.Stdin))

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("%w: %w", constants.ErrTokenPrompt, err)
	}

	return string(tokenBytes), nil
}

// connectEvents returns a NATS backed publisher when url is set, and a
// no-op publisher otherwise.
func connectEvents(url, prefix string) (jenkins.EventPublisher, func(), error) {
	if url == "" {
		return jenkins.NoOpPublisher{}, func() {}, nil
	}

	conn, err := nats.Connect(url, nats.Name("jenkins-cli"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return jenkins.NewNATSPublisher(conn, prefix), func() {
		_ = conn.Drain()
	}, nil
}
