package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

func TestPlugins(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.setDoc("/pluginManager/", map[string]any{
		"plugins": []any{
			map[string]any{"shortName": "git", "longName": "Git plugin", "version": "5.2.1", "active": true},
			map[string]any{"shortName": "credentials", "version": "1337.v60b_d7b_c7b_c9f", "active": true},
		},
	})
	fake.handle(http.MethodPost, "/pluginManager/plugin/git/doUninstall", func(w http.ResponseWriter, _ *http.Request) {
		fake.setDoc("/pluginManager/", map[string]any{
			"plugins": []any{map[string]any{"shortName": "credentials", "version": "1337.v60b_d7b_c7b_c9f"}},
		})
		w.WriteHeader(http.StatusFound)
	})

	c := fake.client()
	ctx := context.Background()

	plugins, err := c.Plugins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"credentials", "git"}, plugins.Keys())

	version, err := plugins.Version("git")
	require.NoError(t, err)
	assert.Equal(t, "5.2.1", version)

	git, err := plugins.Get("git")
	require.NoError(t, err)
	assert.Equal(t, "Git plugin", git.LongName)
	assert.True(t, git.Active)

	_, err = plugins.Version("nope")
	assert.True(t, jenkins.IsNotFound(err))

	require.NoError(t, plugins.Delete(ctx, "git"))
	assert.False(t, plugins.Contains("git"))

	err = plugins.Delete(ctx, "git")
	assert.True(t, jenkins.IsNotFound(err))
}

func TestPlugins_MalformedList(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.setDoc("/pluginManager/", map[string]any{
		"plugins": []any{map[string]any{"shortName": 42}},
	})

	logger := &MockLogger{}
	c := fake.client(func(cfg *jenkins.Config) { cfg.Logger = logger })

	plugins, err := c.Plugins(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plugins.Keys())
	assert.Contains(t, logger.Messages, "WARN: ignoring malformed plugin list")
}
