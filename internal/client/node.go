package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Node implements jenkins.Node.
type Node struct {
	resource
}

var _ jenkins.Node = (*Node)(nil)

func newNode(ctx context.Context, root *Client, name string) (*Node, error) {
	node := &Node{}
	node.init(root, "Node", name, root.nodeURL(name), nil)

	err := node.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return node, nil
}

// Name implements jenkins.Node.
func (n *Node) Name() string {
	return n.name
}

// IsOnline implements jenkins.Node.
func (n *Node) IsOnline() bool {
	return !n.Snapshot().BoolOr(false, "offline")
}

// IsTemporarilyOffline implements jenkins.Node.
func (n *Node) IsTemporarilyOffline() bool {
	return n.Snapshot().BoolOr(false, "temporarilyOffline")
}

// IsIdle implements jenkins.Node.
func (n *Node) IsIdle() bool {
	return n.Snapshot().BoolOr(false, "idle")
}

// IsJNLPAgent implements jenkins.Node.
func (n *Node) IsJNLPAgent() bool {
	return n.Snapshot().BoolOr(false, "jnlpAgent")
}

// NumExecutors implements jenkins.Node.
func (n *Node) NumExecutors() int {
	count, err := n.Snapshot().Int("numExecutors")
	if err != nil {
		return 0
	}

	return count
}

// Labels implements jenkins.Node.
func (n *Node) Labels() []string {
	var labels []string

	for _, l := range n.Snapshot().ListOrEmpty("assignedLabels") {
		if name := l.StringOr("", "name"); name != "" {
			labels = append(labels, name)
		}
	}

	return labels
}

// OfflineReason implements jenkins.Node.
func (n *Node) OfflineReason() string {
	return n.Snapshot().StringOr("", "offlineCauseReason")
}

// ToggleTemporarilyOffline implements jenkins.Node. The endpoint flips the
// flag, so the result is confirmed with a re-read.
func (n *Node) ToggleTemporarilyOffline(ctx context.Context, message string) error {
	err := n.Refresh(ctx)
	if err != nil {
		return err
	}

	before := n.IsTemporarilyOffline()

	_, err = n.root.http.PostQuery(ctx, n.endpoint("toggleOffline"), url.Values{"offlineMessage": {message}})
	if err != nil {
		return fmt.Errorf("toggling %s: %w", n, err)
	}

	err = n.Refresh(ctx)
	if err != nil {
		return err
	}

	if n.IsTemporarilyOffline() == before {
		return jenkins.ContractViolation("node %s: temporarilyOffline still %t after toggle", n.name, before)
	}

	n.root.publish(ctx, jenkins.EventNode, jenkins.ActionToggled, n.name, n.baseURL)

	return nil
}

// SetOnline implements jenkins.Node. A node that is offline without being
// marked temporarily offline has a broken agent connection and cannot be
// brought online by toggling.
func (n *Node) SetOnline(ctx context.Context) error {
	err := n.Refresh(ctx)
	if err != nil {
		return err
	}

	if n.IsOnline() {
		return nil
	}

	if !n.IsTemporarilyOffline() {
		return jenkins.ContractViolation("node %s is offline and not temporarily offline; check the agent connection", n.name)
	}

	err = n.ToggleTemporarilyOffline(ctx, "")
	if err != nil {
		return err
	}

	if !n.IsOnline() {
		return jenkins.ContractViolation("node %s is still offline after toggle", n.name)
	}

	return nil
}

// SetOffline implements jenkins.Node.
func (n *Node) SetOffline(ctx context.Context, message string) error {
	err := n.Refresh(ctx)
	if err != nil {
		return err
	}

	if !n.IsOnline() {
		return nil
	}

	err = n.ToggleTemporarilyOffline(ctx, message)
	if err != nil {
		return err
	}

	if n.IsOnline() {
		return jenkins.ContractViolation("node %s is still online after toggle", n.name)
	}

	return nil
}

// Launch implements jenkins.Node.
func (n *Node) Launch(ctx context.Context) error {
	_, err := n.root.http.PostQuery(ctx, n.endpoint("launchSlaveAgent"), nil)
	if err != nil {
		return fmt.Errorf("launching %s: %w", n, err)
	}

	return n.Refresh(ctx)
}

// BlockUntilOnline implements jenkins.Node.
func (n *Node) BlockUntilOnline(ctx context.Context, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = constants.DefaultNodePollInterval
	}

	return waitFor(ctx, interval, timeout, n.String()+" to come online", func(ctx context.Context) (bool, error) {
		err := n.Refresh(ctx)

		return n.IsOnline(), err
	})
}

// Executors implements jenkins.Node.
func (n *Node) Executors(ctx context.Context) (jenkins.Executors, error) {
	err := n.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return &Executors{node: n, count: n.NumExecutors()}, nil
}

// Config implements jenkins.Node.
func (n *Node) Config(ctx context.Context) (string, error) {
	return getConfig(ctx, n.root, n.endpoint(constants.ConfigXMLPath))
}
