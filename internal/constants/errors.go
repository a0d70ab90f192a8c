package constants

import "errors"

// Configuration errors.
var (
	ErrNoURLConfigured  = errors.New("no server URL configured, use --url or set JENKINS_URL")
	ErrTokenPrompt      = errors.New("reading API token from terminal")
	ErrUnknownConfigKey = errors.New("unknown configuration key")
	ErrInvalidBoolValue = errors.New("value must be true or false")
)

// Argument errors.
var (
	ErrNoJobNames        = errors.New("at least one job name is required")
	ErrInvalidParam      = errors.New("parameters must be given as key=value")
	ErrInvalidOutput     = errors.New("unsupported output format")
	ErrInvalidBuildID    = errors.New("build number must be a positive integer")
	ErrInvalidQueueID    = errors.New("queue item id must be a positive integer")
	ErrConfirmationAbort = errors.New("operation aborted")
)
