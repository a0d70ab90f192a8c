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

// Nodes implements jenkins.Nodes.
type Nodes struct {
	resource
}

var _ jenkins.Nodes = (*Nodes)(nil)

func newNodes(ctx context.Context, root *Client) (*Nodes, error) {
	nodes := &Nodes{}
	nodes.init(root, "Nodes", "computer", root.baseURL+constants.ComputerPath, nil)

	err := nodes.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return nodes, nil
}

// nodeURL derives a node's URL; the controller has a reserved path segment.
func (c *Client) nodeURL(name string) string {
	switch name {
	case constants.MasterNodeName:
		return c.baseURL + constants.ComputerPath + "(master)/"
	case constants.BuiltInNodeName:
		return c.baseURL + constants.ComputerPath + "(built-in)/"
	default:
		return c.baseURL + constants.ComputerPath + url.PathEscape(name) + "/"
	}
}

// Keys implements jenkins.Nodes.
func (n *Nodes) Keys() []string {
	var keys []string

	for _, c := range n.Snapshot().ListOrEmpty("computer") {
		if name := c.StringOr("", "displayName"); name != "" {
			keys = append(keys, name)
		}
	}

	sort.Strings(keys)

	return keys
}

// Contains implements jenkins.Nodes.
func (n *Nodes) Contains(name string) bool {
	for _, key := range n.Keys() {
		if key == name {
			return true
		}
	}

	return false
}

// Get implements jenkins.Nodes.
func (n *Nodes) Get(ctx context.Context, name string) (jenkins.Node, error) {
	if !n.Contains(name) {
		return nil, &jenkins.NotFoundError{Kind: "node", Name: name}
	}

	node, err := newNode(ctx, n.root, name)
	if err != nil {
		return nil, err
	}

	return node, nil
}

// Create implements jenkins.Nodes.
func (n *Nodes) Create(ctx context.Context, name string, cfg jenkins.NodeConfig) (jenkins.Node, error) {
	cfg = cfg.WithDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if n.Contains(name) {
		return n.Get(ctx, name)
	}

	credentialID := ""

	if cfg.Launcher == jenkins.LaunchSSH {
		creds, err := newCredentials(ctx, n.root)
		if err != nil {
			return nil, err
		}

		cred, err := creds.Get(cfg.CredentialDescription)
		if err != nil {
			return nil, fmt.Errorf("resolving credential for node %s: %w", name, err)
		}

		credentialID = cred.ID
	}

	payload, err := json.Marshal(nodePayload(name, cfg, credentialID))
	if err != nil {
		return nil, fmt.Errorf("encoding node %s: %w", name, err)
	}

	form := url.Values{
		"name": {name},
		"type": {constants.DumbSlaveDescriptor},
		"json": {string(payload)},
	}

	_, err = n.root.http.PostForm(ctx, n.root.baseURL+constants.CreateNodePath, form)
	if err != nil {
		return nil, fmt.Errorf("creating node %s: %w", name, err)
	}

	err = n.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	if !n.Contains(name) {
		return nil, fmt.Errorf("%w: node %s", jenkins.ErrCreationFailed, name)
	}

	n.root.publish(ctx, jenkins.EventNode, jenkins.ActionCreated, name, n.root.nodeURL(name))

	return n.Get(ctx, name)
}

// Delete implements jenkins.Nodes.
func (n *Nodes) Delete(ctx context.Context, name string) error {
	if !n.Contains(name) {
		return &jenkins.NotFoundError{Kind: "node", Name: name}
	}

	_, err := n.root.http.PostQuery(ctx, n.root.nodeURL(name)+constants.DeletePath, nil)
	if err != nil {
		return fmt.Errorf("deleting node %s: %w", name, err)
	}

	err = n.Refresh(ctx)
	if err != nil {
		return err
	}

	n.root.publish(ctx, jenkins.EventNode, jenkins.ActionDeleted, name, n.root.nodeURL(name))

	return nil
}

// nodePayload is the document accepted by computer/doCreateItem.
func nodePayload(name string, cfg jenkins.NodeConfig, credentialID string) map[string]any {
	mode := "NORMAL"
	if cfg.Exclusive {
		mode = "EXCLUSIVE"
	}

	retention := map[string]any{"stapler-class": constants.RetentionAlwaysClass}
	if cfg.Retention == jenkins.RetainOnDemand {
		retention = map[string]any{
			"stapler-class": constants.RetentionDemandClass,
			"$class":        constants.RetentionDemandClass,
			"inDemandDelay": cfg.OnDemandDelay,
			"idleDelay":     cfg.OnDemandIdleDelay,
		}
	}

	launcher := map[string]any{"stapler-class": constants.JNLPLauncherClass}
	if cfg.Launcher == jenkins.LaunchSSH {
		launcher = map[string]any{
			"stapler-class":       constants.SSHLauncherClass,
			"$class":              constants.SSHLauncherClass,
			"host":                cfg.Host,
			"port":                cfg.Port,
			"credentialsId":       credentialID,
			"jvmOptions":          cfg.JVMOptions,
			"javaPath":            cfg.JavaPath,
			"prefixStartSlaveCmd": cfg.PrefixStartSlaveCmd,
			"suffixStartSlaveCmd": cfg.SuffixStartSlaveCmd,
			"maxNumRetries":       cfg.MaxNumRetries,
			"retryWaitTime":       cfg.RetryWaitTime,
		}
	}

	properties := map[string]any{"stapler-class-bag": "true"}

	if len(cfg.Env) > 0 {
		keys := make([]string, 0, len(cfg.Env))
		for k := range cfg.Env {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		env := make([]map[string]string, 0, len(keys))
		for _, k := range keys {
			env = append(env, map[string]string{"key": k, "value": cfg.Env[k]})
		}

		properties["hudson-slaves-EnvironmentVariablesNodeProperty"] = map[string]any{
			"stapler-class": constants.EnvironmentVariablesNodeProperty,
			"env":           env,
		}
	}

	return map[string]any{
		"name":              name,
		"nodeDescription":   cfg.Description,
		"numExecutors":      cfg.NumExecutors,
		"remoteFS":          cfg.RemoteFS,
		"labelString":       cfg.LabelString(),
		"mode":              mode,
		"type":              "hudson.slaves.DumbSlave",
		"retentionStrategy": retention,
		"nodeProperties":    properties,
		"launcher":          launcher,
	}
}
