package client

import (
	"context"
	"sort"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// ResultSet implements jenkins.ResultSet over a build's test report.
// Aggregated reports are flattened: cases of every child report are
// listed alongside the report's own suites.
type ResultSet struct {
	resource

	build *Build
}

var _ jenkins.ResultSet = (*ResultSet)(nil)

func newResultSet(ctx context.Context, build *Build) (*ResultSet, error) {
	rs := &ResultSet{build: build}
	rs.init(build.root, "ResultSet", build.name, build.endpoint(constants.TestReportPath), nil)

	err := rs.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return rs, nil
}

func (r *ResultSet) suites() []jenkins.Document {
	doc := r.Snapshot()
	suites := doc.ListOrEmpty("suites")

	for _, child := range doc.ListOrEmpty("childReports") {
		suites = append(suites, child.ListOrEmpty("result", "suites")...)
	}

	return suites
}

// Items implements jenkins.ResultSet.
func (r *ResultSet) Items() []jenkins.Result {
	var results []jenkins.Result

	for _, suite := range r.suites() {
		for _, c := range suite.ListOrEmpty("cases") {
			results = append(results, toResult(c))
		}
	}

	return results
}

func toResult(c jenkins.Document) jenkins.Result {
	result := jenkins.Result{
		ClassName:       c.StringOr("", "className"),
		Name:            c.StringOr("", "name"),
		Status:          c.StringOr("", "status"),
		Skipped:         c.BoolOr(false, "skipped"),
		SkippedMessage:  c.StringOr("", "skippedMessage"),
		ErrorDetails:    c.StringOr("", "errorDetails"),
		ErrorStackTrace: c.StringOr("", "errorStackTrace"),
		Stdout:          c.StringOr("", "stdout"),
		Stderr:          c.StringOr("", "stderr"),
	}

	if d, err := c.Float("duration"); err == nil {
		result.Duration = d
	}

	if age, err := c.Int("age"); err == nil {
		result.Age = age
	}

	return result
}

// Keys implements jenkins.ResultSet.
func (r *ResultSet) Keys() []string {
	items := r.Items()

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Identifier())
	}

	sort.Strings(keys)

	return keys
}

// Get implements jenkins.ResultSet.
func (r *ResultSet) Get(identifier string) (jenkins.Result, error) {
	for _, item := range r.Items() {
		if item.Identifier() == identifier {
			return item, nil
		}
	}

	return jenkins.Result{}, &jenkins.NotFoundError{Kind: "result", Name: identifier}
}

// Len implements jenkins.ResultSet.
func (r *ResultSet) Len() int {
	return len(r.Items())
}
