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

// Plugins implements jenkins.Plugins.
type Plugins struct {
	resource
}

var _ jenkins.Plugins = (*Plugins)(nil)

func newPlugins(ctx context.Context, root *Client) (*Plugins, error) {
	plugins := &Plugins{}
	plugins.init(root, "Plugins", "pluginManager", root.baseURL+constants.PluginManagerPath, url.Values{"depth": {"1"}})

	err := plugins.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return plugins, nil
}

// decodeEntries converts snapshot entries into typed values.
func decodeEntries[T any](entries []jenkins.Document) ([]T, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encoding entries: %w", err)
	}

	var out []T

	err = json.Unmarshal(raw, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", jenkins.ErrMalformedPayload, err)
	}

	return out, nil
}

func (p *Plugins) index() map[string]jenkins.Plugin {
	out := make(map[string]jenkins.Plugin)

	plugins, err := decodeEntries[jenkins.Plugin](p.Snapshot().ListOrEmpty("plugins"))
	if err != nil {
		p.log().Warn("ignoring malformed plugin list", map[string]interface{}{"error": err.Error()})

		return out
	}

	for _, plugin := range plugins {
		if plugin.ShortName != "" {
			out[plugin.ShortName] = plugin
		}
	}

	return out
}

// Keys implements jenkins.Plugins.
func (p *Plugins) Keys() []string {
	index := p.index()

	keys := make([]string, 0, len(index))
	for name := range index {
		keys = append(keys, name)
	}

	sort.Strings(keys)

	return keys
}

// Contains implements jenkins.Plugins.
func (p *Plugins) Contains(shortName string) bool {
	_, ok := p.index()[shortName]

	return ok
}

// Get implements jenkins.Plugins.
func (p *Plugins) Get(shortName string) (jenkins.Plugin, error) {
	plugin, ok := p.index()[shortName]
	if !ok {
		return jenkins.Plugin{}, &jenkins.NotFoundError{Kind: "plugin", Name: shortName}
	}

	return plugin, nil
}

// Version implements jenkins.Plugins.
func (p *Plugins) Version(shortName string) (string, error) {
	plugin, err := p.Get(shortName)
	if err != nil {
		return "", err
	}

	return plugin.Version, nil
}

// Delete implements jenkins.Plugins.
func (p *Plugins) Delete(ctx context.Context, shortName string) error {
	if !p.Contains(shortName) {
		return &jenkins.NotFoundError{Kind: "plugin", Name: shortName}
	}

	_, err := p.root.http.PostQuery(ctx, p.endpoint("plugin/"+url.PathEscape(shortName)+"/doUninstall"), nil)
	if err != nil {
		return fmt.Errorf("uninstalling plugin %s: %w", shortName, err)
	}

	p.root.publish(ctx, jenkins.EventPlugin, jenkins.ActionDeleted, shortName, p.baseURL)

	return p.Refresh(ctx)
}
