package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Job implements jenkins.Job.
type Job struct {
	resource
}

var _ jenkins.Job = (*Job)(nil)

func newJob(ctx context.Context, root *Client, name, jobURL string) (*Job, error) {
	job := &Job{}
	job.init(root, "Job", name, jobURL, nil)
	job.fetch = job.fetchWithHistory

	err := job.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return job, nil
}

// fetchWithHistory loads the job document. The server truncates "builds"
// for long histories; when the oldest listed build is not the first build
// the complete list is fetched with a second, narrower request.
func (j *Job) fetchWithHistory(ctx context.Context) (jenkins.Document, error) {
	doc, err := j.root.http.GetDocument(ctx, jenkins.APIURL(j.baseURL), nil)
	if err != nil {
		return nil, err
	}

	builds := doc.ListOrEmpty("builds")
	if len(builds) == 0 {
		return doc, nil
	}

	first, err := doc.Int("firstBuild", "number")
	if err != nil {
		return doc, nil //nolint:nilerr // no first build means nothing to merge
	}

	oldest, err := builds[len(builds)-1].Int("number")
	if err != nil || oldest == first {
		return doc, nil //nolint:nilerr // malformed entries are left as listed
	}

	all, err := j.root.http.GetDocument(ctx, jenkins.APIURL(j.baseURL), url.Values{"tree": {"allBuilds[number,url]"}})
	if err != nil {
		return nil, fmt.Errorf("loading build history of %s: %w", j.name, err)
	}

	j.log().Debug("merged truncated build history", map[string]interface{}{
		"job":    j.name,
		"listed": len(builds),
		"oldest": oldest,
		"first":  first,
	})

	doc["builds"] = all["allBuilds"]

	return doc, nil
}

// Name implements jenkins.Job.
func (j *Job) Name() string {
	return j.name
}

// Description implements jenkins.Job.
func (j *Job) Description() string {
	return j.Snapshot().StringOr("", "description")
}

// IsEnabled implements jenkins.Job.
func (j *Job) IsEnabled() bool {
	doc := j.Snapshot()
	if buildable, err := doc.Bool("buildable"); err == nil && !doc.Has("color") {
		return buildable
	}

	return doc.StringOr("", "color") != "disabled"
}

// Enable implements jenkins.Job.
func (j *Job) Enable(ctx context.Context) error {
	return j.post(ctx, "enable", jenkins.ActionUpdated)
}

// Disable implements jenkins.Job.
func (j *Job) Disable(ctx context.Context) error {
	return j.post(ctx, "disable", jenkins.ActionUpdated)
}

func (j *Job) post(ctx context.Context, suffix, action string) error {
	_, err := j.root.http.PostQuery(ctx, j.endpoint(suffix), nil)
	if err != nil {
		return fmt.Errorf("%s job %s: %w", suffix, j.name, err)
	}

	j.root.publish(ctx, jenkins.EventJob, action, j.name, j.baseURL)

	return j.Refresh(ctx)
}

// BuildDict implements jenkins.Job.
func (j *Job) BuildDict() map[int]string {
	builds := j.Snapshot().ListOrEmpty("builds")

	out := make(map[int]string, len(builds))

	for _, b := range builds {
		number, err := b.Int("number")
		if err != nil {
			continue
		}

		out[number] = b.StringOr(j.baseURL+strconv.Itoa(number)+"/", "url")
	}

	return out
}

// BuildIDs implements jenkins.Job.
func (j *Job) BuildIDs() []int {
	dict := j.BuildDict()

	ids := make([]int, 0, len(dict))
	for n := range dict {
		ids = append(ids, n)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(ids)))

	return ids
}

// Build implements jenkins.Job.
func (j *Job) Build(ctx context.Context, number int) (jenkins.Build, error) {
	buildURL, ok := j.BuildDict()[number]
	if !ok {
		return nil, &jenkins.NotFoundError{Kind: "build", Name: j.name + " #" + strconv.Itoa(number)}
	}

	build, err := newBuild(ctx, j, number, buildURL)
	if err != nil {
		return nil, err
	}

	return build, nil
}

// BuildNumber implements jenkins.Job.
func (j *Job) BuildNumber(kind jenkins.BuildKind) (int, error) {
	n, err := j.Snapshot().Int(string(kind), "number")
	if err != nil {
		return 0, j.annotate(err)
	}

	return n, nil
}

// LastBuild implements jenkins.Job.
func (j *Job) LastBuild(ctx context.Context) (jenkins.Build, error) {
	n, err := j.BuildNumber(jenkins.LastBuild)
	if err != nil {
		return nil, err
	}

	build, err := j.buildAt(ctx, n)
	if err != nil {
		return nil, err
	}

	return build, nil
}

// buildAt resolves a build number even when it is newer than the listed
// history.
func (j *Job) buildAt(ctx context.Context, number int) (*Build, error) {
	buildURL, ok := j.BuildDict()[number]
	if !ok {
		buildURL = j.baseURL + strconv.Itoa(number) + "/"
	}

	return newBuild(ctx, j, number, buildURL)
}

// IsQueued implements jenkins.Job.
func (j *Job) IsQueued(ctx context.Context) (bool, error) {
	err := j.Refresh(ctx)
	if err != nil {
		return false, err
	}

	return j.Snapshot().BoolOr(false, "inQueue"), nil
}

// IsRunning implements jenkins.Job.
func (j *Job) IsRunning(ctx context.Context) (bool, error) {
	err := j.Refresh(ctx)
	if err != nil {
		return false, err
	}

	n, err := j.BuildNumber(jenkins.LastBuild)
	if err != nil {
		if jenkins.IsNoData(err) {
			return false, nil
		}

		return false, err
	}

	build, err := j.buildAt(ctx, n)
	if err != nil {
		return false, err
	}

	return build.building(), nil
}

// IsQueuedOrRunning implements jenkins.Job.
func (j *Job) IsQueuedOrRunning(ctx context.Context) (bool, error) {
	queued, err := j.IsQueued(ctx)
	if err != nil || queued {
		return queued, err
	}

	return j.IsRunning(ctx)
}

// QueueItem implements jenkins.Job.
func (j *Job) QueueItem(ctx context.Context) (jenkins.QueueItem, error) {
	id, err := j.Snapshot().Int("queueItem", "id")
	if err != nil {
		return nil, fmt.Errorf("job %s is not queued: %w", j.name, j.annotate(err))
	}

	item, err := newQueueItem(ctx, j.root, id)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// DeleteFromQueue implements jenkins.Job.
func (j *Job) DeleteFromQueue(ctx context.Context) error {
	item, err := j.QueueItem(ctx)
	if err != nil {
		return err
	}

	queue, err := newQueue(ctx, j.root)
	if err != nil {
		return err
	}

	err = queue.Cancel(ctx, item.ID())
	if err != nil {
		return err
	}

	return j.Refresh(ctx)
}

func (j *Job) relatedNames(key string) []string {
	var names []string

	for _, p := range j.Snapshot().ListOrEmpty(key) {
		if name := p.StringOr("", "name"); name != "" {
			names = append(names, name)
		}
	}

	return names
}

func (j *Job) relatedJobs(ctx context.Context, key string) ([]jenkins.Job, error) {
	entries := j.Snapshot().ListOrEmpty(key)

	jobs := make([]jenkins.Job, 0, len(entries))

	for _, p := range entries {
		name := p.StringOr("", "name")
		if name == "" {
			continue
		}

		job, err := newJob(ctx, j.root, name, p.StringOr(j.root.jobURL(name), "url"))
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

// DownstreamJobNames implements jenkins.Job.
func (j *Job) DownstreamJobNames() []string {
	return j.relatedNames("downstreamProjects")
}

// DownstreamJobs implements jenkins.Job.
func (j *Job) DownstreamJobs(ctx context.Context) ([]jenkins.Job, error) {
	return j.relatedJobs(ctx, "downstreamProjects")
}

// UpstreamJobNames implements jenkins.Job.
func (j *Job) UpstreamJobNames() []string {
	return j.relatedNames("upstreamProjects")
}

// UpstreamJobs implements jenkins.Job.
func (j *Job) UpstreamJobs(ctx context.Context) ([]jenkins.Job, error) {
	return j.relatedJobs(ctx, "upstreamProjects")
}

// Params implements jenkins.Job. Definitions are collected from both job
// properties and actions; the first definition of a name wins.
func (j *Job) Params() []jenkins.ParameterDefinition {
	doc := j.Snapshot()
	seen := make(map[string]bool)

	var params []jenkins.ParameterDefinition

	for _, key := range []string{"property", "actions"} {
		for _, holder := range doc.ListOrEmpty(key) {
			for _, def := range holder.ListOrEmpty("parameterDefinitions") {
				name := def.StringOr("", "name")
				if name == "" || seen[name] {
					continue
				}

				seen[name] = true

				param := jenkins.ParameterDefinition{
					Name:        name,
					Type:        def.StringOr("", "type"),
					Description: def.StringOr("", "description"),
				}

				if v, err := def.Value("defaultParameterValue", "value"); err == nil {
					param.DefaultValue = v
				}

				params = append(params, param)
			}
		}
	}

	return params
}

// HasParams implements jenkins.Job.
func (j *Job) HasParams() bool {
	return len(j.Params()) > 0
}

// Config implements jenkins.Job.
func (j *Job) Config(ctx context.Context) (string, error) {
	return getConfig(ctx, j.root, j.endpoint(constants.ConfigXMLPath))
}

// UpdateConfig implements jenkins.Job.
func (j *Job) UpdateConfig(ctx context.Context, configXML string) error {
	_, err := j.root.http.PostXML(ctx, j.endpoint(constants.ConfigXMLPath), nil, configXML)
	if err != nil {
		return fmt.Errorf("updating config of job %s: %w", j.name, err)
	}

	j.root.publish(ctx, jenkins.EventJob, jenkins.ActionUpdated, j.name, j.baseURL)

	return j.Refresh(ctx)
}

// getConfig reads an entity's config.xml.
func getConfig(ctx context.Context, root *Client, configURL string) (string, error) {
	resp, err := root.http.Get(ctx, configURL, nil)
	if err != nil {
		return "", fmt.Errorf("getting config: %w", err)
	}

	return string(resp.Body), nil
}
