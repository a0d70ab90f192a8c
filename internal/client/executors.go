package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Executors implements jenkins.Executors.
type Executors struct {
	node  *Node
	count int
}

var _ jenkins.Executors = (*Executors)(nil)

// Keys implements jenkins.Executors.
func (e *Executors) Keys() []int {
	keys := make([]int, e.count)
	for i := range keys {
		keys[i] = i
	}

	return keys
}

// Contains implements jenkins.Executors.
func (e *Executors) Contains(index int) bool {
	return index >= 0 && index < e.count
}

// Get implements jenkins.Executors.
func (e *Executors) Get(ctx context.Context, index int) (jenkins.Executor, error) {
	if !e.Contains(index) {
		return nil, &jenkins.NotFoundError{Kind: "executor", Name: e.node.name + "#" + strconv.Itoa(index)}
	}

	executor, err := newExecutor(ctx, e.node, index)
	if err != nil {
		return nil, err
	}

	return executor, nil
}

// All implements jenkins.Executors.
func (e *Executors) All(ctx context.Context) ([]jenkins.Executor, error) {
	out := make([]jenkins.Executor, 0, e.count)

	for _, i := range e.Keys() {
		executor, err := newExecutor(ctx, e.node, i)
		if err != nil {
			return nil, err
		}

		out = append(out, executor)
	}

	return out, nil
}

// Executor implements jenkins.Executor.
type Executor struct {
	resource

	number int
}

var _ jenkins.Executor = (*Executor)(nil)

func newExecutor(ctx context.Context, node *Node, number int) (*Executor, error) {
	executor := &Executor{number: number}
	executor.init(node.root, "Executor", node.name+"#"+strconv.Itoa(number), node.endpoint("executors/"+strconv.Itoa(number)), nil)

	err := executor.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return executor, nil
}

// Number implements jenkins.Executor.
func (e *Executor) Number() int {
	return e.number
}

// IsIdle implements jenkins.Executor.
func (e *Executor) IsIdle() bool {
	return e.Snapshot().BoolOr(true, "idle")
}

// LikelyStuck implements jenkins.Executor.
func (e *Executor) LikelyStuck() bool {
	return e.Snapshot().BoolOr(false, "likelyStuck")
}

// Progress implements jenkins.Executor. It is -1 when idle.
func (e *Executor) Progress() int {
	p, err := e.Snapshot().Int("progress")
	if err != nil {
		return -1
	}

	return p
}

// CurrentBuild implements jenkins.Executor.
func (e *Executor) CurrentBuild(ctx context.Context) (jenkins.Build, error) {
	buildURL := e.Snapshot().StringOr("", "currentExecutable", "url")
	if buildURL == "" {
		return nil, nil //nolint:nilnil // idle executor
	}

	build, err := e.root.buildFromURL(ctx, buildURL)
	if err != nil {
		return nil, err
	}

	return build, nil
}

// buildFromURL reconstructs a build and its job from a build URL such as
// <root>/job/folder/job/name/12/.
func (c *Client) buildFromURL(ctx context.Context, buildURL string) (*Build, error) {
	parsed, err := url.Parse(buildURL)
	if err != nil {
		return nil, jenkins.ContractViolation("invalid build URL %q: %v", buildURL, err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 3 {
		return nil, jenkins.ContractViolation("not a build URL: %q", buildURL)
	}

	number, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil {
		return nil, jenkins.ContractViolation("not a build URL: %q", buildURL)
	}

	var names []string

	for i := 0; i+1 < len(segments)-1; i++ {
		if segments[i] == "job" {
			name, err := url.PathUnescape(segments[i+1])
			if err != nil {
				name = segments[i+1]
			}

			names = append(names, name)
			i++
		}
	}

	if len(names) == 0 {
		return nil, jenkins.ContractViolation("no job in build URL %q", buildURL)
	}

	jobURL := strings.TrimSuffix(withSlash(buildURL), strconv.Itoa(number)+"/")

	job, err := newJob(ctx, c, strings.Join(names, "/"), jobURL)
	if err != nil {
		return nil, fmt.Errorf("resolving job of %s: %w", buildURL, err)
	}

	return job.buildAt(ctx, number)
}
