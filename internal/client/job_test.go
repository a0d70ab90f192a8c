package client

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

func getJob(t *testing.T, fake *fakeJenkins, name string) *Job {
	t.Helper()

	c := fake.client()

	job, err := newJob(context.Background(), c, name, c.jobURL(name))
	require.NoError(t, err)

	return job
}

func TestJob_BuildHistoryMerge(t *testing.T) {
	t.Parallel()

	t.Run("truncated history is completed with a second call", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		doc := fake.jobDoc("J1", 5)
		doc["firstBuild"] = map[string]any{"number": 1}
		fake.setDoc("/job/J1/", doc)

		fake.handle(http.MethodGet, "/job/J1/api/json", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("tree") == "allBuilds[number,url]" {
				all := make([]any, 0, 5)
				for n := 5; n >= 1; n-- {
					all = append(all, map[string]any{"number": n, "url": fake.URL() + "job/J1/" + strconv.Itoa(n) + "/"})
				}

				writeJSON(w, map[string]any{"allBuilds": all})

				return
			}

			writeJSON(w, doc)
		})

		job := getJob(t, fake, "J1")
		assert.Equal(t, []int{5, 4, 3, 2, 1}, job.BuildIDs())
		assert.Equal(t, 2, fake.count(http.MethodGet, "/job/J1/api/json"))
		assert.Equal(t, fake.URL()+"job/J1/3/", job.BuildDict()[3])
	})

	t.Run("complete history needs one call", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.setDoc("/job/J1/", fake.jobDoc("J1", 2, 1))

		job := getJob(t, fake, "J1")
		assert.Equal(t, []int{2, 1}, job.BuildIDs())
		assert.Equal(t, 1, fake.count(http.MethodGet, "/job/J1/api/json"))
	})

	t.Run("never built", func(t *testing.T) {
		t.Parallel()

		fake := newFakeJenkins(t)
		fake.setDoc("/job/J1/", fake.jobDoc("J1"))

		job := getJob(t, fake, "J1")
		assert.Empty(t, job.BuildIDs())

		_, err := job.BuildNumber(jenkins.LastBuild)
		require.Error(t, err)
		assert.True(t, jenkins.IsNoData(err))
		assert.False(t, jenkins.IsTransient(err))

		_, err = job.LastBuild(context.Background())
		assert.True(t, jenkins.IsNoData(err))

		_, err = job.Build(context.Background(), 1)
		assert.True(t, jenkins.IsNotFound(err))
	})
}

func TestJob_Accessors(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	doc := fake.jobDoc("J1", 7, 6)
	doc["description"] = "nightly"
	doc["color"] = "disabled"
	doc["lastSuccessfulBuild"] = map[string]any{"number": 6}
	doc["downstreamProjects"] = []any{map[string]any{"name": "deploy", "url": fake.URL() + "job/deploy/"}}
	doc["upstreamProjects"] = []any{map[string]any{"name": "compile", "url": fake.URL() + "job/compile/"}}
	doc["property"] = []any{
		map[string]any{
			"parameterDefinitions": []any{
				map[string]any{
					"name":                  "BRANCH",
					"type":                  "StringParameterDefinition",
					"description":           "branch to build",
					"defaultParameterValue": map[string]any{"value": "main"},
				},
			},
		},
	}
	fake.setDoc("/job/J1/", doc)
	fake.setDoc("/job/deploy/", fake.jobDoc("deploy"))

	job := getJob(t, fake, "J1")

	assert.Equal(t, "J1", job.Name())
	assert.Equal(t, "nightly", job.Description())
	assert.False(t, job.IsEnabled())
	assert.Equal(t, []string{"deploy"}, job.DownstreamJobNames())
	assert.Equal(t, []string{"compile"}, job.UpstreamJobNames())

	n, err := job.BuildNumber(jenkins.LastSuccessfulBuild)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	require.True(t, job.HasParams())
	params := job.Params()
	require.Len(t, params, 1)
	assert.Equal(t, "BRANCH", params[0].Name)
	assert.Equal(t, "main", params[0].DefaultValue)

	downstream, err := job.DownstreamJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, downstream, 1)
	assert.Equal(t, "deploy", downstream[0].Name())

	_, err = job.UpstreamJobs(context.Background())
	assert.True(t, jenkins.IsNotFound(err))
}

func TestJob_EnableDisable(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.setDoc("/job/J1/", fake.jobDoc("J1"))
	fake.handle(http.MethodPost, "/job/J1/disable", func(w http.ResponseWriter, _ *http.Request) {
		doc := fake.jobDoc("J1")
		doc["color"] = "disabled"
		fake.setDoc("/job/J1/", doc)
		w.WriteHeader(http.StatusFound)
	})

	job := getJob(t, fake, "J1")
	assert.True(t, job.IsEnabled())

	require.NoError(t, job.Disable(context.Background()))
	assert.False(t, job.IsEnabled())

	require.NoError(t, job.Enable(context.Background()))
	assert.Equal(t, 1, fake.count(http.MethodPost, "/job/J1/enable"))
}

func TestJob_QueueState(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	doc := fake.jobDoc("J1")
	doc["inQueue"] = true
	doc["queueItem"] = map[string]any{"id": 42}
	fake.setDoc("/job/J1/", doc)
	fake.setDoc("/queue/item/42/", map[string]any{"id": 42, "task": map[string]any{"name": "J1"}, "why": "Waiting"})
	fake.setDoc("/queue/", map[string]any{"items": []any{map[string]any{"id": 42, "task": map[string]any{"name": "J1"}}}})

	job := getJob(t, fake, "J1")
	ctx := context.Background()

	queued, err := job.IsQueued(ctx)
	require.NoError(t, err)
	assert.True(t, queued)

	either, err := job.IsQueuedOrRunning(ctx)
	require.NoError(t, err)
	assert.True(t, either)

	item, err := job.QueueItem(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, item.ID())
	assert.Equal(t, "Waiting", item.Why())

	require.NoError(t, job.DeleteFromQueue(ctx))
	assert.Contains(t, fake.posts(), "/queue/cancelItem?id=42")
}

func TestJob_IsRunning(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.setDoc("/job/J1/", fake.jobDoc("J1", 3))
	fake.setDoc("/job/J1/3/", map[string]any{"number": 3, "building": true})

	job := getJob(t, fake, "J1")

	running, err := job.IsRunning(context.Background())
	require.NoError(t, err)
	assert.True(t, running)
}

func TestJob_Config(t *testing.T) {
	t.Parallel()

	fake := newFakeJenkins(t)
	fake.setDoc("/job/J1/", fake.jobDoc("J1"))
	fake.handle(http.MethodGet, "/job/J1/config.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testJobXML))
	})

	job := getJob(t, fake, "J1")

	cfg, err := job.Config(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testJobXML, cfg)

	require.NoError(t, job.UpdateConfig(context.Background(), testJobXML))
	assert.Equal(t, 1, fake.count(http.MethodPost, "/job/J1/config.xml"))
}
