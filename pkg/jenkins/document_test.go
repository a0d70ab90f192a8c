package jenkins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"http://ci/job/J1", "http://ci/job/J1/api/json"},
		{"http://ci/job/J1/", "http://ci/job/J1/api/json"},
		{"http://ci/job/J1/api/json", "http://ci/job/J1/api/json"},
		{"http://ci/job/J1/api/json/", "http://ci/job/J1/api/json/"},
	}

	for _, tt := range tests {
		got := APIURL(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, APIURL(got), "applying the suffix twice must not change %s", got)
	}
}

func TestParseDocument(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(`{
		"name": "J1",
		"buildable": true,
		"nextBuildNumber": 12,
		"healthReport": [{"score": 80.5}],
		"lastBuild": {"number": 11, "url": "http://ci/job/J1/11/"},
		"lastFailedBuild": null,
		"labels": ["a", 1, "b"]
	}`))
	require.NoError(t, err)

	name, err := doc.String("name")
	require.NoError(t, err)
	assert.Equal(t, "J1", name)

	n, err := doc.Int("lastBuild", "number")
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	b, err := doc.Bool("buildable")
	require.NoError(t, err)
	assert.True(t, b)

	reports, err := doc.List("healthReport")
	require.NoError(t, err)
	require.Len(t, reports, 1)

	score, err := reports[0].Float("score")
	require.NoError(t, err)
	assert.InDelta(t, 80.5, score, 0.001)

	labels, err := doc.Strings("labels")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels)

	_, err = doc.Int("lastFailedBuild", "number")
	require.Error(t, err)
	assert.True(t, IsNoData(err))

	_, err = doc.Int("name")
	require.Error(t, err)
	assert.True(t, IsNoData(err))

	_, err = doc.Value("name", "deeper")
	assert.True(t, IsNoData(err))

	assert.Equal(t, "fallback", doc.StringOr("fallback", "missing"))
	assert.False(t, doc.Has("lastFailedBuild"))
	assert.True(t, doc.Has("lastBuild", "url"))
}

func TestParseDocument_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseDocument([]byte(`<html>`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = ParseDocument([]byte(`null`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestMergeActions(t *testing.T) {
	t.Parallel()

	actions := []Document{
		{},
		{"causes": []any{map[string]any{"shortDescription": "Started by user"}}},
		{"parameters": []any{map[string]any{"name": "A", "value": "1"}}},
		{"causes": []any{map[string]any{"upstreamProject": "up", "upstreamBuild": 4}}},
		{"lastBuiltRevision": map[string]any{"SHA1": "abc"}},
	}

	merged := MergeActions(actions)

	causes, err := merged.List("causes")
	require.NoError(t, err)
	assert.Len(t, causes, 2)

	project, err := causes[1].String("upstreamProject")
	require.NoError(t, err)
	assert.Equal(t, "up", project)

	sha, err := merged.String("lastBuiltRevision", "SHA1")
	require.NoError(t, err)
	assert.Equal(t, "abc", sha)
	assert.True(t, merged.Has("parameters"))
}
