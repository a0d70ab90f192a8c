package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Build implements jenkins.Build.
type Build struct {
	resource

	number int
	job    *Job
}

var _ jenkins.Build = (*Build)(nil)

func newBuild(ctx context.Context, job *Job, number int, buildURL string) (*Build, error) {
	build := &Build{number: number, job: job}
	build.init(job.root, "Build", job.name+" #"+strconv.Itoa(number), buildURL, url.Values{"depth": {"1"}})

	err := build.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return build, nil
}

// Number implements jenkins.Build.
func (b *Build) Number() int {
	return b.number
}

// Job implements jenkins.Build.
func (b *Build) Job() jenkins.Job {
	return b.job
}

// Status implements jenkins.Build.
func (b *Build) Status() string {
	return b.Snapshot().StringOr("", "result")
}

// IsGood implements jenkins.Build.
func (b *Build) IsGood() bool {
	return !b.building() && b.Status() == constants.ResultSuccess
}

func (b *Build) building() bool {
	return b.Snapshot().BoolOr(false, "building")
}

// IsRunning implements jenkins.Build.
func (b *Build) IsRunning(ctx context.Context) (bool, error) {
	err := b.Refresh(ctx)
	if err != nil {
		return false, err
	}

	return b.building(), nil
}

// BlockUntilComplete implements jenkins.Build.
func (b *Build) BlockUntilComplete(ctx context.Context, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = constants.DefaultBuildPollInterval
	}

	return waitFor(ctx, interval, timeout, b.String()+" to complete", func(ctx context.Context) (bool, error) {
		running, err := b.IsRunning(ctx)

		return !running, err
	})
}

// Stop implements jenkins.Build. Stopping a finished build is a no-op.
func (b *Build) Stop(ctx context.Context) error {
	running, err := b.IsRunning(ctx)
	if err != nil || !running {
		return err
	}

	_, err = b.root.http.PostQuery(ctx, b.endpoint("stop"), nil)
	if err != nil {
		return fmt.Errorf("stopping %s: %w", b, err)
	}

	b.root.publish(ctx, jenkins.EventBuild, jenkins.ActionStopped, b.name, b.baseURL)

	return b.Refresh(ctx)
}

// Duration implements jenkins.Build.
func (b *Build) Duration() time.Duration {
	ms, err := b.Snapshot().Int("duration")
	if err != nil {
		return 0
	}

	return time.Duration(ms) * time.Millisecond
}

// Timestamp implements jenkins.Build.
func (b *Build) Timestamp() time.Time {
	ms, err := b.Snapshot().Int("timestamp")
	if err != nil {
		return time.Time{}
	}

	return time.UnixMilli(int64(ms)).UTC()
}

// Description implements jenkins.Build.
func (b *Build) Description() string {
	return b.Snapshot().StringOr("", "description")
}

// BuiltOn implements jenkins.Build.
func (b *Build) BuiltOn() string {
	return b.Snapshot().StringOr("", "builtOn")
}

// Actions implements jenkins.Build.
func (b *Build) Actions() jenkins.Document {
	return jenkins.MergeActions(b.Snapshot().ListOrEmpty("actions"))
}

// Causes implements jenkins.Build.
func (b *Build) Causes() []jenkins.Document {
	return b.Actions().ListOrEmpty("causes")
}

// Params implements jenkins.Build.
func (b *Build) Params() map[string]any {
	out := make(map[string]any)

	for _, p := range b.Actions().ListOrEmpty("parameters") {
		name := p.StringOr("", "name")
		if name == "" {
			continue
		}

		value, err := p.Value("value")
		if err != nil {
			value = nil
		}

		out[name] = value
	}

	return out
}

// Artifacts implements jenkins.Build.
func (b *Build) Artifacts() []jenkins.Artifact {
	entries := b.Snapshot().ListOrEmpty("artifacts")

	artifacts := make([]jenkins.Artifact, 0, len(entries))

	for _, entry := range entries {
		rel := entry.StringOr("", "relativePath")
		if rel == "" {
			continue
		}

		artifacts = append(artifacts, newArtifact(b, entry.StringOr(rel, "fileName"), rel))
	}

	return artifacts
}

// ArtifactDict implements jenkins.Build.
func (b *Build) ArtifactDict() map[string]jenkins.Artifact {
	artifacts := b.Artifacts()

	out := make(map[string]jenkins.Artifact, len(artifacts))
	for _, a := range artifacts {
		out[a.RelativePath()] = a
	}

	return out
}

// HasResultSet implements jenkins.Build.
func (b *Build) HasResultSet() bool {
	for _, action := range b.Snapshot().ListOrEmpty("actions") {
		if action.Has("totalCount") || action.StringOr("", "urlName") == constants.TestReportPath {
			return true
		}
	}

	return false
}

// ResultSet implements jenkins.Build.
func (b *Build) ResultSet(ctx context.Context) (jenkins.ResultSet, error) {
	if !b.HasResultSet() {
		return nil, &jenkins.MissingFieldError{Entity: b.String(), Path: constants.TestReportPath, Reason: "build has no test report"}
	}

	rs, err := newResultSet(ctx, b)
	if err != nil {
		return nil, err
	}

	return rs, nil
}

// upstreamCause returns the first cause naming both an upstream project
// and an upstream build number.
func (b *Build) upstreamCause() (string, int, bool) {
	for _, cause := range b.Causes() {
		name := cause.StringOr("", "upstreamProject")
		if name == "" {
			continue
		}

		n, err := cause.Int("upstreamBuild")
		if err != nil {
			continue
		}

		return name, n, true
	}

	return "", 0, false
}

// UpstreamJobName implements jenkins.Build.
func (b *Build) UpstreamJobName() (string, bool) {
	name, _, ok := b.upstreamCause()

	return name, ok
}

// UpstreamBuildNumber implements jenkins.Build.
func (b *Build) UpstreamBuildNumber() (int, bool) {
	_, n, ok := b.upstreamCause()

	return n, ok
}

// UpstreamBuild implements jenkins.Build.
func (b *Build) UpstreamBuild(ctx context.Context) (jenkins.Build, error) {
	name, number, ok := b.upstreamCause()
	if !ok {
		return nil, nil //nolint:nilnil // no upstream cause
	}

	return b.root.Build(ctx, name, number)
}

// fingerprintUsage is the fingerprint query result used for downstream
// resolution.
type fingerprintUsage struct {
	Fingerprint []struct {
		Usage []struct {
			Name   string `json:"name"`
			Ranges struct {
				Ranges []usageRange `json:"ranges"`
			} `json:"ranges"`
		} `json:"usage"`
	} `json:"fingerprint"`
}

// usageRange is a half-open [Start, End) range of build numbers.
type usageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// expandRanges lists the build numbers covered by ranges, in first-seen
// order, never exceeding highest. Empty and inverted ranges are skipped.
func expandRanges(ranges []usageRange, highest int) []int {
	seen := make(map[int]bool)

	var out []int

	for _, r := range ranges {
		if r.End <= r.Start {
			continue
		}

		end := min(r.End, highest+1)
		for n := max(r.Start, 1); n < end; n++ {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	return out
}

// downstreamUsage maps candidate downstream job names to the usage ranges
// of this build's fingerprints. Jobs whose ranges are all empty are left
// out.
func (b *Build) downstreamUsage(ctx context.Context) (map[string][]usageRange, error) {
	candidates := make(map[string]bool)
	for _, name := range b.job.DownstreamJobNames() {
		candidates[name] = true
	}

	out := make(map[string][]usageRange)
	if len(candidates) == 0 {
		return out, nil
	}

	resp, err := b.root.http.Get(ctx, jenkins.APIURL(b.baseURL), url.Values{
		"depth": {"2"},
		"tree":  {"fingerprint[usage[name,ranges[ranges[end,start]]]]"},
	})
	if err != nil {
		return nil, fmt.Errorf("loading fingerprints of %s: %w", b, err)
	}

	var usage fingerprintUsage

	err = json.Unmarshal(resp.Body, &usage)
	if err != nil {
		b.log().Warn("ignoring malformed fingerprint data", map[string]interface{}{
			"build": b.String(),
			"error": err.Error(),
		})

		return out, nil
	}

	for _, fp := range usage.Fingerprint {
		for _, u := range fp.Usage {
			if !candidates[u.Name] {
				continue
			}

			for _, r := range u.Ranges.Ranges {
				if r.End > r.Start {
					out[u.Name] = append(out[u.Name], r)
				}
			}
		}
	}

	return out, nil
}

// DownstreamJobNames implements jenkins.Build.
func (b *Build) DownstreamJobNames(ctx context.Context) ([]string, error) {
	usage, err := b.downstreamUsage(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// DownstreamBuilds implements jenkins.Build. Ranges are bounded by the
// downstream job's last build, and builds that no longer exist are skipped.
func (b *Build) DownstreamBuilds(ctx context.Context) ([]jenkins.Build, error) {
	usage, err := b.downstreamUsage(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}

	sort.Strings(names)

	var builds []jenkins.Build

	for _, name := range names {
		job, err := newJob(ctx, b.root, name, b.root.jobURL(name))
		if jenkins.IsNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		for _, n := range expandRanges(usage[name], job.lastBuildNumber()) {
			build, err := job.buildAt(ctx, n)
			if jenkins.IsNotFound(err) {
				continue
			}

			if err != nil {
				return nil, err
			}

			builds = append(builds, build)
		}
	}

	return builds, nil
}

// Console implements jenkins.Build.
func (b *Build) Console(ctx context.Context) (string, error) {
	resp, err := b.root.http.Get(ctx, b.endpoint(constants.ConsolePath), nil)
	if err != nil {
		return "", fmt.Errorf("getting console of %s: %w", b, err)
	}

	return string(resp.Body), nil
}

// EnvVars implements jenkins.Build. It requires the EnvInject plugin.
func (b *Build) EnvVars(ctx context.Context) (map[string]string, error) {
	doc, err := b.root.http.GetDocument(ctx, jenkins.APIURL(b.endpoint(constants.EnvVarsPath)), nil)
	if err != nil {
		return nil, fmt.Errorf("getting environment of %s: %w", b, err)
	}

	envMap, err := doc.Map("envMap")
	if err != nil {
		return nil, b.annotate(err)
	}

	out := make(map[string]string, len(envMap))
	for k, v := range envMap {
		out[k] = fmt.Sprint(v)
	}

	return out, nil
}
