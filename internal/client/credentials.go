package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
	"github.com/google/uuid"
)

// Credentials implements jenkins.Credentials over the system store's
// global domain. Entries are keyed by description because the server does
// not expose a caller-chosen name.
//
// Unlike jobs and views, deleting an unknown credential is an error.
type Credentials struct {
	resource
}

var _ jenkins.Credentials = (*Credentials)(nil)

func newCredentials(ctx context.Context, root *Client) (*Credentials, error) {
	creds := &Credentials{}
	creds.init(root, "Credentials", "system", root.baseURL+constants.CredentialsStorePath, url.Values{"depth": {"1"}})

	err := creds.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return creds, nil
}

func (c *Credentials) index() map[string]jenkins.Credential {
	out := make(map[string]jenkins.Credential)

	creds, err := decodeEntries[jenkins.Credential](c.Snapshot().ListOrEmpty("credentials"))
	if err != nil {
		c.log().Warn("ignoring malformed credential list", map[string]interface{}{"error": err.Error()})

		return out
	}

	for _, cred := range creds {
		if cred.Description != "" {
			out[cred.Description] = cred
		}
	}

	return out
}

// Keys implements jenkins.Credentials.
func (c *Credentials) Keys() []string {
	index := c.index()

	keys := make([]string, 0, len(index))
	for desc := range index {
		keys = append(keys, desc)
	}

	sort.Strings(keys)

	return keys
}

// Contains implements jenkins.Credentials.
func (c *Credentials) Contains(description string) bool {
	_, ok := c.index()[description]

	return ok
}

// Get implements jenkins.Credentials.
func (c *Credentials) Get(description string) (jenkins.Credential, error) {
	cred, ok := c.index()[description]
	if !ok {
		return jenkins.Credential{}, &jenkins.NotFoundError{Kind: "credential", Name: description}
	}

	return cred, nil
}

// Create implements jenkins.Credentials.
func (c *Credentials) Create(ctx context.Context, description string, spec jenkins.CredentialSpec) (jenkins.Credential, error) {
	if cred, ok := c.index()[description]; ok {
		return cred, nil
	}

	err := spec.Validate()
	if err != nil {
		return jenkins.Credential{}, err
	}

	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}

	payload, err := json.Marshal(spec.Payload(description))
	if err != nil {
		return jenkins.Credential{}, fmt.Errorf("encoding credential: %w", err)
	}

	_, err = c.root.http.PostForm(ctx, c.endpoint("createCredentials"), url.Values{"json": {string(payload)}})
	if err != nil {
		return jenkins.Credential{}, fmt.Errorf("creating credential %q: %w", description, err)
	}

	err = c.Refresh(ctx)
	if err != nil {
		return jenkins.Credential{}, err
	}

	cred, ok := c.index()[description]
	if !ok {
		return jenkins.Credential{}, fmt.Errorf("%w: credential %q", jenkins.ErrCreationFailed, description)
	}

	c.root.publish(ctx, jenkins.EventCredential, jenkins.ActionCreated, description, c.endpoint("credential/"+url.PathEscape(cred.ID)+"/"))

	return cred, nil
}

// Delete implements jenkins.Credentials.
func (c *Credentials) Delete(ctx context.Context, description string) error {
	cred, err := c.Get(description)
	if err != nil {
		return err
	}

	credURL := c.endpoint("credential/" + url.PathEscape(cred.ID) + "/")

	_, err = c.root.http.PostQuery(ctx, credURL+constants.DeletePath, nil)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", description, err)
	}

	c.root.publish(ctx, jenkins.EventCredential, jenkins.ActionDeleted, description, credURL)

	return c.Refresh(ctx)
}
