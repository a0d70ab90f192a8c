package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Jobs implements jenkins.Jobs on top of the root snapshot.
type Jobs struct {
	root *Client
}

var _ jenkins.Jobs = (*Jobs)(nil)

// index maps job names to URLs as listed in the root snapshot.
func (j *Jobs) index() map[string]string {
	out := make(map[string]string)

	for _, entry := range j.root.Snapshot().ListOrEmpty("jobs") {
		name := entry.StringOr("", "name")
		if name != "" {
			out[name] = entry.StringOr(j.root.jobURL(name), "url")
		}
	}

	return out
}

// Keys implements jenkins.Jobs.
func (j *Jobs) Keys() []string {
	index := j.index()

	keys := make([]string, 0, len(index))
	for name := range index {
		keys = append(keys, name)
	}

	sort.Strings(keys)

	return keys
}

// Contains implements jenkins.Jobs.
func (j *Jobs) Contains(name string) bool {
	_, ok := j.index()[name]

	return ok
}

// Get implements jenkins.Jobs.
func (j *Jobs) Get(ctx context.Context, name string) (jenkins.Job, error) {
	jobURL, ok := j.index()[name]
	if !ok {
		return nil, &jenkins.NotFoundError{Kind: "job", Name: name}
	}

	job, err := newJob(ctx, j.root, name, jobURL)
	if err != nil {
		return nil, err
	}

	return job, nil
}

// Create implements jenkins.Jobs.
func (j *Jobs) Create(ctx context.Context, name, configXML string) (jenkins.Job, error) {
	if j.Contains(name) {
		return j.Get(ctx, name)
	}

	parent, short := j.root.parentURL(name)

	_, err := j.root.http.PostXML(ctx, parent+constants.CreateItemPath, url.Values{"name": {short}}, configXML)
	if err != nil {
		return nil, fmt.Errorf("creating job %s: %w", name, err)
	}

	err = j.root.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	if !j.Contains(name) {
		return nil, fmt.Errorf("%w: job %s", jenkins.ErrCreationFailed, name)
	}

	j.root.publish(ctx, jenkins.EventJob, jenkins.ActionCreated, name, j.root.jobURL(name))

	return j.Get(ctx, name)
}

// Delete implements jenkins.Jobs.
func (j *Jobs) Delete(ctx context.Context, name string) error {
	jobURL, ok := j.index()[name]
	if !ok {
		return nil
	}

	_, err := j.root.http.PostQuery(ctx, withSlash(jobURL)+constants.DeletePath, nil)
	if err != nil {
		return fmt.Errorf("deleting job %s: %w", name, err)
	}

	err = j.root.Refresh(ctx)
	if err != nil {
		return err
	}

	j.root.publish(ctx, jenkins.EventJob, jenkins.ActionDeleted, name, jobURL)

	return nil
}

// Rename implements jenkins.Jobs.
func (j *Jobs) Rename(ctx context.Context, oldName, newName string) (jenkins.Job, error) {
	jobURL, ok := j.index()[oldName]
	if !ok {
		return nil, &jenkins.NotFoundError{Kind: "job", Name: oldName}
	}

	_, short := j.root.parentURL(newName)

	_, err := j.root.http.PostQuery(ctx, withSlash(jobURL)+"doRename", url.Values{"newName": {short}})
	if err != nil {
		return nil, fmt.Errorf("renaming job %s: %w", oldName, err)
	}

	err = j.root.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	j.root.publish(ctx, jenkins.EventJob, jenkins.ActionRenamed, newName, j.root.jobURL(newName))

	return j.Get(ctx, newName)
}

// Copy implements jenkins.Jobs.
func (j *Jobs) Copy(ctx context.Context, source, destination string) (jenkins.Job, error) {
	if j.Contains(destination) {
		return j.Get(ctx, destination)
	}

	if !j.Contains(source) {
		return nil, &jenkins.NotFoundError{Kind: "job", Name: source}
	}

	parent, short := j.root.parentURL(destination)
	query := url.Values{
		"name": {short},
		"mode": {"copy"},
		"from": {source},
	}

	_, err := j.root.http.PostQuery(ctx, parent+constants.CreateItemPath, query)
	if err != nil {
		return nil, fmt.Errorf("copying job %s to %s: %w", source, destination, err)
	}

	err = j.root.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	if !j.Contains(destination) {
		return nil, fmt.Errorf("%w: job %s", jenkins.ErrCreationFailed, destination)
	}

	j.root.publish(ctx, jenkins.EventJob, jenkins.ActionCreated, destination, j.root.jobURL(destination))

	return j.Get(ctx, destination)
}

// Build implements jenkins.Jobs.
func (j *Jobs) Build(ctx context.Context, name string, params map[string]string) (*jenkins.Invocation, error) {
	job, err := j.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return job.Invoke(ctx, jenkins.InvokeOptions{Params: params, Block: true})
}
