package client

import (
	"context"
	"net/url"
	"sync"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Fingerprint implements jenkins.Fingerprint.
type Fingerprint struct {
	resource

	id string

	stateMutex sync.Mutex
	unknown    bool
}

var _ jenkins.Fingerprint = (*Fingerprint)(nil)

func newFingerprint(root *Client, id string) *Fingerprint {
	fp := &Fingerprint{id: id}
	fp.init(root, "Fingerprint", id, root.baseURL+"fingerprint/"+url.PathEscape(id), nil)

	return fp
}

// ID implements jenkins.Fingerprint.
func (f *Fingerprint) ID() string {
	return f.id
}

// Unknown implements jenkins.Fingerprint.
func (f *Fingerprint) Unknown() bool {
	f.stateMutex.Lock()
	defer f.stateMutex.Unlock()

	return f.unknown
}

// Valid implements jenkins.Fingerprint. A checksum the server has never
// seen is valid but unknown.
func (f *Fingerprint) Valid(ctx context.Context) (bool, error) {
	err := f.Refresh(ctx)

	f.stateMutex.Lock()
	f.unknown = jenkins.IsNotFound(err)
	f.stateMutex.Unlock()

	if err != nil && !jenkins.IsNotFound(err) {
		return false, err
	}

	return true, nil
}

// ValidateForBuild implements jenkins.Fingerprint. The checksum is valid
// for a build that produced it or that used it.
func (f *Fingerprint) ValidateForBuild(ctx context.Context, filename, jobName string, buildNumber int) (bool, error) {
	valid, err := f.Valid(ctx)
	if err != nil || !valid {
		return false, err
	}

	if f.Unknown() {
		return true, nil
	}

	doc := f.Snapshot()

	if original, err := doc.Map("original"); err == nil {
		if original.StringOr("", "name") == jobName {
			if n, err := original.Int("number"); err == nil && n == buildNumber {
				return true, nil
			}
		}
	}

	if doc.StringOr("", "fileName") != filename {
		return false, nil
	}

	for _, usage := range doc.ListOrEmpty("usage") {
		if usage.StringOr("", "name") != jobName {
			continue
		}

		for _, r := range usage.ListOrEmpty("ranges", "ranges") {
			start, errStart := r.Int("start")
			end, errEnd := r.Int("end")

			if errStart == nil && errEnd == nil && start <= buildNumber && buildNumber < end {
				return true, nil
			}
		}
	}

	return false, nil
}
