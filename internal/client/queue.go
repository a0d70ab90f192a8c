package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Queue implements jenkins.Queue.
type Queue struct {
	resource
}

var _ jenkins.Queue = (*Queue)(nil)

func newQueue(ctx context.Context, root *Client) (*Queue, error) {
	queue := &Queue{}
	queue.init(root, "Queue", "queue", root.baseURL+constants.QueuePath, nil)

	err := queue.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return queue, nil
}

// Keys implements jenkins.Queue.
func (q *Queue) Keys() []int {
	var ids []int

	for _, item := range q.Snapshot().ListOrEmpty("items") {
		if id, err := item.Int("id"); err == nil {
			ids = append(ids, id)
		}
	}

	sort.Ints(ids)

	return ids
}

// Contains implements jenkins.Queue.
func (q *Queue) Contains(id int) bool {
	for _, key := range q.Keys() {
		if key == id {
			return true
		}
	}

	return false
}

// Get implements jenkins.Queue.
func (q *Queue) Get(ctx context.Context, id int) (jenkins.QueueItem, error) {
	if !q.Contains(id) {
		return nil, &jenkins.NotFoundError{Kind: "queue item", Name: strconv.Itoa(id)}
	}

	item, err := newQueueItem(ctx, q.root, id)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// ItemsForJob implements jenkins.Queue.
func (q *Queue) ItemsForJob(ctx context.Context, jobName string) ([]jenkins.QueueItem, error) {
	var items []jenkins.QueueItem

	for _, entry := range q.Snapshot().ListOrEmpty("items") {
		if entry.StringOr("", "task", "name") != jobName {
			continue
		}

		id, err := entry.Int("id")
		if err != nil {
			continue
		}

		item, err := newQueueItem(ctx, q.root, id)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, nil
}

// Cancel implements jenkins.Queue.
func (q *Queue) Cancel(ctx context.Context, id int) error {
	_, err := q.root.http.PostQuery(ctx, q.root.baseURL+constants.CancelQueueItemPath, url.Values{"id": {strconv.Itoa(id)}})
	if err != nil {
		return fmt.Errorf("cancelling queue item %d: %w", id, err)
	}

	q.root.publish(ctx, jenkins.EventQueue, jenkins.ActionCanceled, strconv.Itoa(id), q.root.queueItemURL(id))

	return q.Refresh(ctx)
}

func (c *Client) queueItemURL(id int) string {
	return c.baseURL + constants.QueuePath + "item/" + strconv.Itoa(id) + "/"
}

// QueueItem implements jenkins.QueueItem.
type QueueItem struct {
	resource

	id int
}

var _ jenkins.QueueItem = (*QueueItem)(nil)

func newQueueItem(ctx context.Context, root *Client, id int) (*QueueItem, error) {
	item := &QueueItem{id: id}
	item.init(root, "QueueItem", strconv.Itoa(id), root.queueItemURL(id), nil)

	err := item.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// ID implements jenkins.QueueItem.
func (q *QueueItem) ID() int {
	return q.id
}

// JobName implements jenkins.QueueItem.
func (q *QueueItem) JobName() string {
	return q.Snapshot().StringOr("", "task", "name")
}

// Why implements jenkins.QueueItem.
func (q *QueueItem) Why() string {
	return q.Snapshot().StringOr("", "why")
}

// IsCancelled implements jenkins.QueueItem.
func (q *QueueItem) IsCancelled() bool {
	return q.Snapshot().BoolOr(false, "cancelled")
}

// IsBlocked implements jenkins.QueueItem.
func (q *QueueItem) IsBlocked() bool {
	return q.Snapshot().BoolOr(false, "blocked")
}

// IsQueued implements jenkins.QueueItem.
func (q *QueueItem) IsQueued() bool {
	return !q.IsCancelled() && !q.Snapshot().Has("executable")
}

// Parameters implements jenkins.QueueItem.
func (q *QueueItem) Parameters() map[string]string {
	out := make(map[string]string)

	for _, p := range jenkins.MergeActions(q.Snapshot().ListOrEmpty("actions")).ListOrEmpty("parameters") {
		name := p.StringOr("", "name")
		if name == "" {
			continue
		}

		value, err := p.Value("value")
		if err != nil {
			out[name] = ""

			continue
		}

		out[name] = fmt.Sprint(value)
	}

	return out
}

// BuildNumber implements jenkins.QueueItem.
func (q *QueueItem) BuildNumber() (int, error) {
	n, err := q.Snapshot().Int("executable", "number")
	if err != nil {
		return 0, fmt.Errorf("%w: queue item %d", jenkins.ErrNotBuiltYet, q.id)
	}

	return n, nil
}

// Job implements jenkins.QueueItem.
func (q *QueueItem) Job(ctx context.Context) (jenkins.Job, error) {
	return q.job(ctx)
}

func (q *QueueItem) job(ctx context.Context) (*Job, error) {
	name := q.JobName()
	if name == "" {
		return nil, q.annotate(&jenkins.MissingFieldError{Path: "task.name"})
	}

	return newJob(ctx, q.root, name, q.Snapshot().StringOr(q.root.jobURL(name), "task", "url"))
}

// Build implements jenkins.QueueItem.
func (q *QueueItem) Build(ctx context.Context) (jenkins.Build, error) {
	n, err := q.BuildNumber()
	if err != nil {
		return nil, err
	}

	if buildURL := q.Snapshot().StringOr("", "executable", "url"); buildURL != "" {
		build, err := q.root.buildFromURL(ctx, buildURL)
		if err != nil {
			return nil, err
		}

		return build, nil
	}

	job, err := q.job(ctx)
	if err != nil {
		return nil, err
	}

	build, err := job.buildAt(ctx, n)
	if err != nil {
		return nil, err
	}

	return build, nil
}

// BlockUntilBuilding implements jenkins.QueueItem.
func (q *QueueItem) BlockUntilBuilding(ctx context.Context, interval, timeout time.Duration) (jenkins.Build, error) {
	if interval <= 0 {
		interval = constants.DefaultBuildPollInterval
	}

	err := waitFor(ctx, interval, timeout, q.String()+" to start building", func(ctx context.Context) (bool, error) {
		err := q.Refresh(ctx)
		if err != nil {
			return false, err
		}

		if q.IsCancelled() {
			return false, fmt.Errorf("%w: queue item %d was cancelled", jenkins.ErrNotScheduled, q.id)
		}

		return q.Snapshot().Has("executable", "number"), nil
	})
	if err != nil {
		return nil, err
	}

	return q.Build(ctx)
}

// BlockUntilComplete implements jenkins.QueueItem.
func (q *QueueItem) BlockUntilComplete(ctx context.Context, interval, timeout time.Duration) (jenkins.Build, error) {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	build, err := q.BlockUntilBuilding(ctx, interval, 0)
	if err != nil {
		return nil, timeoutOr(err, timeout, q.String())
	}

	err = build.BlockUntilComplete(ctx, interval, 0)
	if err != nil {
		return nil, timeoutOr(err, timeout, q.String())
	}

	return build, nil
}

// timeoutOr maps an expired caller-supplied timeout onto jenkins.ErrTimeout.
func timeoutOr(err error, timeout time.Duration, what string) error {
	if timeout > 0 && ctxDeadline(err) {
		return fmt.Errorf("%w: %s after %s", jenkins.ErrTimeout, what, timeout)
	}

	return err
}
