package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

func (f *fakeJenkins) withNodes(names ...string) {
	computers := make([]any, 0, len(names))
	for _, name := range names {
		computers = append(computers, map[string]any{"displayName": name})
	}

	f.setDoc("/computer/", map[string]any{"computer": computers})
}

func TestClient_NodeURL(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	c := fake.client()

	assert.Equal(t, fake.URL()+"computer/(master)/", c.nodeURL("master"))
	assert.Equal(t, fake.URL()+"computer/(built-in)/", c.nodeURL("Built-In Node"))
	assert.Equal(t, fake.URL()+"computer/agent%201/", c.nodeURL("agent 1"))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNodes_Create(t *testing.T) {
	t.Parallel()

	t.Run("invalid config sends nothing", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.withNodes("Built-In Node")

		c := fake.client()

		nodes, err := c.Nodes(context.Background())
		require.NoError(t, err)

		_, err = nodes.Create(context.Background(), "agent", jenkins.NodeConfig{Launcher: jenkins.LaunchSSH})
		require.Error(t, err)
		assert.True(t, jenkins.IsContractViolation(err))
		assert.Contains(t, err.Error(), "Host")
		assert.Empty(t, fake.posts())
	})

	t.Run("ssh agent resolves its credential", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.withNodes("Built-In Node")
		fake.setDoc("/credentials/store/system/domain/_/", map[string]any{
			"credentials": []any{map[string]any{"id": "cred-42", "description": "deploy key"}},
		})
		fake.setDoc("/computer/agent/", map[string]any{"displayName": "agent", "offline": true})

		fake.handle(http.MethodPost, "/computer/doCreateItem", func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "agent", r.PostForm.Get("name"))
			assert.Equal(t, "hudson.slaves.DumbSlave$DescriptorImpl", r.PostForm.Get("type"))

			var payload map[string]any
			assert.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("json")), &payload))
			assert.Equal(t, "hudson.slaves.DumbSlave", payload["type"])
			assert.Equal(t, "linux docker", payload["labelString"])
			assert.Equal(t, "EXCLUSIVE", payload["mode"])

			launcher, _ := payload["launcher"].(map[string]any)
			assert.Equal(t, "cred-42", launcher["credentialsId"])
			assert.Equal(t, "build.example.com", launcher["host"])
			assert.InDelta(t, 22, launcher["port"], 0)

			props, _ := payload["nodeProperties"].(map[string]any)
			envProp, _ := props["hudson-slaves-EnvironmentVariablesNodeProperty"].(map[string]any)
			assert.Equal(t, []any{
				map[string]any{"key": "A", "value": "1"},
				map[string]any{"key": "B", "value": "2"},
			}, envProp["env"])

			fake.withNodes("Built-In Node", "agent")
			w.WriteHeader(http.StatusFound)
		})

		c := fake.client()
		ctx := context.Background()

		nodes, err := c.Nodes(ctx)
		require.NoError(t, err)

		node, err := nodes.Create(ctx, "agent", jenkins.NodeConfig{
			Labels:                []string{"linux", "docker"},
			Exclusive:             true,
			Launcher:              jenkins.LaunchSSH,
			Host:                  "build.example.com",
			CredentialDescription: "deploy key",
			Env:                   map[string]string{"B": "2", "A": "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "agent", node.Name())
		assert.False(t, node.IsOnline())

		_, err = nodes.Create(ctx, "agent", jenkins.NodeConfig{})
		require.NoError(t, err)
		assert.Equal(t, 1, fake.count(http.MethodPost, "/computer/doCreateItem"))
	})

	t.Run("unknown credential", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.withNodes()
		fake.setDoc("/credentials/store/system/domain/_/", map[string]any{"credentials": []any{}})

		c := fake.client()

		nodes, err := c.Nodes(context.Background())
		require.NoError(t, err)

		_, err = nodes.Create(context.Background(), "agent", jenkins.NodeConfig{
			Launcher:              jenkins.LaunchSSH,
			Host:                  "h",
			CredentialDescription: "missing",
		})
		assert.True(t, jenkins.IsNotFound(err))
		assert.Empty(t, fake.posts())
	})
}

func TestNodes_Delete(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.withNodes("agent")
	fake.handle(http.MethodPost, "/computer/agent/doDelete", func(w http.ResponseWriter, _ *http.Request) {
		fake.withNodes()
		w.WriteHeader(http.StatusOK)
	})

	c := fake.client()
	ctx := context.Background()

	nodes, err := c.Nodes(ctx)
	require.NoError(t, err)

	require.NoError(t, nodes.Delete(ctx, "agent"))
	assert.False(t, nodes.Contains("agent"))

	err = nodes.Delete(ctx, "agent")
	assert.True(t, jenkins.IsNotFound(err))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNode_Toggle(t *testing.T) {
	t.Parallel()

	t.Run("set offline and back online", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.withNodes("agent")
		fake.setDoc("/computer/agent/", map[string]any{"displayName": "agent", "offline": false, "temporarilyOffline": false})

		offline := false

		fake.handle(http.MethodPost, "/computer/agent/toggleOffline", func(w http.ResponseWriter, r *http.Request) {
			offline = !offline
			fake.setDoc("/computer/agent/", map[string]any{
				"displayName":        "agent",
				"offline":            offline,
				"temporarilyOffline": offline,
				"offlineCauseReason": r.URL.Query().Get("offlineMessage"),
			})
			w.WriteHeader(http.StatusOK)
		})

		publisher := &recordingPublisher{}
		c := fake.client(func(cfg *jenkins.Config) { cfg.Events = publisher })
		ctx := context.Background()

		nodes, err := c.Nodes(ctx)
		require.NoError(t, err)

		node, err := nodes.Get(ctx, "agent")
		require.NoError(t, err)

		require.NoError(t, node.SetOffline(ctx, "maintenance"))
		assert.False(t, node.IsOnline())
		assert.Equal(t, "maintenance", node.OfflineReason())

		require.NoError(t, node.SetOffline(ctx, "again"))

		require.NoError(t, node.SetOnline(ctx))
		assert.True(t, node.IsOnline())
		assert.Equal(t, 2, fake.count(http.MethodPost, "/computer/agent/toggleOffline"))
		assert.Equal(t, []string{"node.toggled", "node.toggled"}, publisher.actions())
	})

	t.Run("toggle without effect", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.withNodes("agent")
		fake.setDoc("/computer/agent/", map[string]any{"displayName": "agent", "offline": false, "temporarilyOffline": false})

		c := fake.client()
		ctx := context.Background()

		nodes, err := c.Nodes(ctx)
		require.NoError(t, err)

		node, err := nodes.Get(ctx, "agent")
		require.NoError(t, err)

		err = node.ToggleTemporarilyOffline(ctx, "")
		require.Error(t, err)
		assert.True(t, jenkins.IsContractViolation(err))
	})

	t.Run("disconnected agent cannot be toggled online", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.withNodes("agent")
		fake.setDoc("/computer/agent/", map[string]any{"displayName": "agent", "offline": true, "temporarilyOffline": false})

		c := fake.client()
		ctx := context.Background()

		nodes, err := c.Nodes(ctx)
		require.NoError(t, err)

		node, err := nodes.Get(ctx, "agent")
		require.NoError(t, err)

		err = node.SetOnline(ctx)
		assert.True(t, jenkins.IsContractViolation(err))
		assert.Empty(t, fake.posts())
	})
}

func TestNode_Accessors(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.withNodes("Built-In Node")
	fake.setDoc("/computer/(built-in)/", map[string]any{
		"displayName":    "Built-In Node",
		"offline":        false,
		"idle":           true,
		"jnlpAgent":      false,
		"numExecutors":   2,
		"assignedLabels": []any{map[string]any{"name": "built-in"}, map[string]any{"name": "linux"}},
	})

	c := fake.client()
	ctx := context.Background()

	nodes, err := c.Nodes(ctx)
	require.NoError(t, err)

	node, err := nodes.Get(ctx, "Built-In Node")
	require.NoError(t, err)

	assert.True(t, node.IsOnline())
	assert.True(t, node.IsIdle())
	assert.False(t, node.IsJNLPAgent())
	assert.Equal(t, 2, node.NumExecutors())
	assert.Equal(t, []string{"built-in", "linux"}, node.Labels())

	require.NoError(t, node.BlockUntilOnline(ctx, time.Millisecond, time.Second))
}

func TestNode_Executors(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.withNodes("agent")
	fake.setDoc("/computer/agent/", map[string]any{"displayName": "agent", "numExecutors": 2})
	fake.setDoc("/computer/agent/executors/0/", map[string]any{
		"idle":              false,
		"progress":          40,
		"likelyStuck":       false,
		"currentExecutable": map[string]any{"url": fake.URL() + "job/team/job/svc/5/"},
	})
	fake.setDoc("/computer/agent/executors/1/", map[string]any{"idle": true})
	fake.setDoc("/job/team/job/svc/", map[string]any{"name": "svc", "builds": []any{}})
	fake.setDoc("/job/team/job/svc/5/", map[string]any{"number": 5, "building": true})

	c := fake.client()
	ctx := context.Background()

	nodes, err := c.Nodes(ctx)
	require.NoError(t, err)

	node, err := nodes.Get(ctx, "agent")
	require.NoError(t, err)

	executors, err := node.Executors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, executors.Keys())
	assert.False(t, executors.Contains(2))

	_, err = executors.Get(ctx, 2)
	assert.True(t, jenkins.IsNotFound(err))

	all, err := executors.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	busy := all[0]
	assert.False(t, busy.IsIdle())
	assert.Equal(t, 40, busy.Progress())

	build, err := busy.CurrentBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, build.Number())
	assert.Equal(t, "team/svc", build.Job().Name())

	idle := all[1]
	assert.True(t, idle.IsIdle())
	assert.Equal(t, -1, idle.Progress())

	none, err := idle.CurrentBuild(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}
