package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// viewOwner is either the root or a nested view.
type viewOwner interface {
	BaseURL() string
	Snapshot() jenkins.Document
	Refresh(ctx context.Context) error
}

// Views implements jenkins.Views for the views listed by owner.
type Views struct {
	root  *Client
	owner viewOwner
}

var _ jenkins.Views = (*Views)(nil)

func (v *Views) index() map[string]string {
	out := make(map[string]string)

	for _, entry := range v.owner.Snapshot().ListOrEmpty("views") {
		name := entry.StringOr("", "name")
		if name != "" {
			out[name] = entry.StringOr(v.owner.BaseURL()+"view/"+url.PathEscape(name)+"/", "url")
		}
	}

	return out
}

// Keys implements jenkins.Views.
func (v *Views) Keys() []string {
	index := v.index()

	keys := make([]string, 0, len(index))
	for name := range index {
		keys = append(keys, name)
	}

	sort.Strings(keys)

	return keys
}

// Contains implements jenkins.Views.
func (v *Views) Contains(name string) bool {
	_, ok := v.index()[name]

	return ok
}

// Get implements jenkins.Views.
func (v *Views) Get(ctx context.Context, name string) (jenkins.View, error) {
	viewURL, ok := v.index()[name]
	if !ok {
		return nil, &jenkins.NotFoundError{Kind: "view", Name: name}
	}

	view, err := newView(ctx, v.root, name, viewURL)
	if err != nil {
		return nil, err
	}

	return view, nil
}

// Create implements jenkins.Views.
func (v *Views) Create(ctx context.Context, name string, viewType jenkins.ViewType) (jenkins.View, error) {
	if v.Contains(name) {
		return v.Get(ctx, name)
	}

	if viewType == "" {
		viewType = jenkins.ListView
	}

	payload, err := json.Marshal(map[string]string{"name": name, "mode": string(viewType)})
	if err != nil {
		return nil, fmt.Errorf("encoding view %s: %w", name, err)
	}

	form := url.Values{
		"name": {name},
		"mode": {string(viewType)},
		"json": {string(payload)},
	}

	_, err = v.root.http.PostForm(ctx, v.owner.BaseURL()+constants.CreateViewPath, form)
	if err != nil {
		return nil, fmt.Errorf("creating view %s: %w", name, err)
	}

	err = v.owner.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	if !v.Contains(name) {
		return nil, fmt.Errorf("%w: view %s", jenkins.ErrCreationFailed, name)
	}

	v.root.publish(ctx, jenkins.EventView, jenkins.ActionCreated, name, v.index()[name])

	return v.Get(ctx, name)
}

// Delete implements jenkins.Views.
func (v *Views) Delete(ctx context.Context, name string) error {
	viewURL, ok := v.index()[name]
	if !ok {
		return nil
	}

	_, err := v.root.http.PostQuery(ctx, withSlash(viewURL)+constants.DeletePath, nil)
	if err != nil {
		return fmt.Errorf("deleting view %s: %w", name, err)
	}

	err = v.owner.Refresh(ctx)
	if err != nil {
		return err
	}

	v.root.publish(ctx, jenkins.EventView, jenkins.ActionDeleted, name, viewURL)

	return nil
}

// Rename implements jenkins.Views.
func (v *Views) Rename(ctx context.Context, oldName, newName string) (jenkins.View, error) {
	viewURL, ok := v.index()[oldName]
	if !ok {
		return nil, &jenkins.NotFoundError{Kind: "view", Name: oldName}
	}

	payload, err := json.Marshal(map[string]string{"name": newName})
	if err != nil {
		return nil, fmt.Errorf("encoding view %s: %w", newName, err)
	}

	form := url.Values{
		"name": {newName},
		"json": {string(payload)},
	}

	_, err = v.root.http.PostForm(ctx, withSlash(viewURL)+"configSubmit", form)
	if err != nil {
		return nil, fmt.Errorf("renaming view %s: %w", oldName, err)
	}

	err = v.owner.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	v.root.publish(ctx, jenkins.EventView, jenkins.ActionRenamed, newName, v.index()[newName])

	return v.Get(ctx, newName)
}

// View implements jenkins.View.
type View struct {
	resource
}

var _ jenkins.View = (*View)(nil)

func newView(ctx context.Context, root *Client, name, viewURL string) (*View, error) {
	view := &View{}
	view.init(root, "View", name, viewURL, nil)

	err := view.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return view, nil
}

// Name implements jenkins.View.
func (v *View) Name() string {
	return v.name
}

// JobDict implements jenkins.View.
func (v *View) JobDict() map[string]string {
	out := make(map[string]string)

	for _, entry := range v.Snapshot().ListOrEmpty("jobs") {
		name := entry.StringOr("", "name")
		if name != "" {
			out[name] = entry.StringOr(v.root.jobURL(name), "url")
		}
	}

	return out
}

// JobNames implements jenkins.View.
func (v *View) JobNames() []string {
	dict := v.JobDict()

	names := make([]string, 0, len(dict))
	for name := range dict {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ContainsJob implements jenkins.View.
func (v *View) ContainsJob(name string) bool {
	_, ok := v.JobDict()[name]

	return ok
}

// Job implements jenkins.View.
func (v *View) Job(ctx context.Context, name string) (jenkins.Job, error) {
	jobURL, ok := v.JobDict()[name]
	if !ok {
		return nil, &jenkins.NotFoundError{Kind: "job", Name: name}
	}

	job, err := newJob(ctx, v.root, name, jobURL)
	if err != nil {
		return nil, err
	}

	return job, nil
}

// AddJob implements jenkins.View. Adding a listed job is a no-op.
func (v *View) AddJob(ctx context.Context, name string) error {
	if v.ContainsJob(name) {
		return nil
	}

	return v.changeJobs(ctx, "addJobToView", name)
}

// RemoveJob implements jenkins.View. Removing an unlisted job is a no-op.
func (v *View) RemoveJob(ctx context.Context, name string) error {
	if !v.ContainsJob(name) {
		return nil
	}

	return v.changeJobs(ctx, "removeJobFromView", name)
}

func (v *View) changeJobs(ctx context.Context, action, name string) error {
	_, err := v.root.http.PostQuery(ctx, v.endpoint(action), url.Values{"name": {name}})
	if err != nil {
		return fmt.Errorf("%s %s in view %s: %w", action, name, v.name, err)
	}

	v.root.publish(ctx, jenkins.EventView, jenkins.ActionUpdated, v.name, v.baseURL)

	return v.Refresh(ctx)
}

// Views implements jenkins.View.
func (v *View) Views() jenkins.Views {
	return &Views{root: v.root, owner: v}
}

// Config implements jenkins.View.
func (v *View) Config(ctx context.Context) (string, error) {
	return getConfig(ctx, v.root, v.endpoint(constants.ConfigXMLPath))
}

// UpdateConfig implements jenkins.View.
func (v *View) UpdateConfig(ctx context.Context, configXML string) error {
	_, err := v.root.http.PostXML(ctx, v.endpoint(constants.ConfigXMLPath), nil, configXML)
	if err != nil {
		return fmt.Errorf("updating config of view %s: %w", v.name, err)
	}

	v.root.publish(ctx, jenkins.EventView, jenkins.ActionUpdated, v.name, v.baseURL)

	return v.Refresh(ctx)
}
