package client

import (
	"context"
	"net/url"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Label implements jenkins.Label.
type Label struct {
	resource
}

var _ jenkins.Label = (*Label)(nil)

func newLabel(ctx context.Context, root *Client, name string) (*Label, error) {
	label := &Label{}
	label.init(root, "Label", name, root.baseURL+"label/"+url.PathEscape(name), nil)

	err := label.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return label, nil
}

// Name implements jenkins.Label.
func (l *Label) Name() string {
	return l.name
}

// IsOnline implements jenkins.Label.
func (l *Label) IsOnline() bool {
	return !l.Snapshot().BoolOr(false, "offline")
}

// NodeNames implements jenkins.Label. The controller is listed with an
// empty node name and is reported as the built-in node.
func (l *Label) NodeNames() []string {
	var names []string

	for _, n := range l.Snapshot().ListOrEmpty("nodes") {
		name := n.StringOr("", "nodeName")
		if name == "" {
			name = constants.BuiltInNodeName
		}

		names = append(names, name)
	}

	return names
}

// TiedJobNames implements jenkins.Label.
func (l *Label) TiedJobNames() []string {
	var names []string

	for _, j := range l.Snapshot().ListOrEmpty("tiedJobs") {
		if name := j.StringOr("", "name"); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// TiedJobs implements jenkins.Label.
func (l *Label) TiedJobs(ctx context.Context) ([]jenkins.Job, error) {
	entries := l.Snapshot().ListOrEmpty("tiedJobs")

	jobs := make([]jenkins.Job, 0, len(entries))

	for _, entry := range entries {
		name := entry.StringOr("", "name")
		if name == "" {
			continue
		}

		job, err := newJob(ctx, l.root, name, entry.StringOr(l.root.jobURL(name), "url"))
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Nodes implements jenkins.Label.
func (l *Label) Nodes(ctx context.Context) ([]jenkins.Node, error) {
	names := l.NodeNames()

	nodes := make([]jenkins.Node, 0, len(names))

	for _, name := range names {
		node, err := newNode(ctx, l.root, name)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}
