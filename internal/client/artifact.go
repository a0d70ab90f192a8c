package client

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprints are MD5 by protocol
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/jenkins-client/internal/constants"
	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// Artifact implements jenkins.Artifact.
type Artifact struct {
	filename     string
	relativePath string
	url          string
	build        *Build
}

var _ jenkins.Artifact = (*Artifact)(nil)

func newArtifact(build *Build, filename, relativePath string) *Artifact {
	parts := strings.Split(relativePath, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return &Artifact{
		filename:     filename,
		relativePath: relativePath,
		url:          build.endpoint(constants.ArtifactPath + strings.Join(parts, "/")),
		build:        build,
	}
}

// Filename implements jenkins.Artifact.
func (a *Artifact) Filename() string {
	return a.filename
}

// RelativePath implements jenkins.Artifact.
func (a *Artifact) RelativePath() string {
	return a.relativePath
}

// URL implements jenkins.Artifact.
func (a *Artifact) URL() string {
	return a.url
}

// Build implements jenkins.Artifact.
func (a *Artifact) Build() jenkins.Build {
	return a.build
}

// String implements fmt.Stringer.
func (a *Artifact) String() string {
	return fmt.Sprintf("<Artifact %s of %s>", a.relativePath, a.build)
}

// Data implements jenkins.Artifact.
func (a *Artifact) Data(ctx context.Context) ([]byte, error) {
	resp, err := a.build.root.http.Get(ctx, a.url, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", a, err)
	}

	return resp.Body, nil
}

// Save implements jenkins.Artifact. An existing file whose checksum
// validates is kept without downloading again.
func (a *Artifact) Save(ctx context.Context, path string, strict bool) error {
	if existing, err := os.ReadFile(path); err == nil { //nolint:gosec // caller-chosen path
		err = a.verify(ctx, existing, strict)
		if err == nil {
			a.build.log().Debug("artifact already saved", map[string]interface{}{
				"artifact": a.relativePath,
				"path":     path,
			})

			return nil
		}
	}

	data, err := a.Data(ctx)
	if err != nil {
		return err
	}

	err = a.verify(ctx, data, strict)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	err = os.WriteFile(path, data, constants.ArtifactFilePerm)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

// SaveToDir implements jenkins.Artifact.
func (a *Artifact) SaveToDir(ctx context.Context, dir string, strict bool) (string, error) {
	path := filepath.Join(dir, a.filename)

	return path, a.Save(ctx, path, strict)
}

// verify checks data against the server's fingerprint record for this
// build.
func (a *Artifact) verify(ctx context.Context, data []byte, strict bool) error {
	sum := md5.Sum(data) //nolint:gosec // fingerprints are MD5 by protocol
	fp := newFingerprint(a.build.root, hex.EncodeToString(sum[:]))

	valid, err := fp.ValidateForBuild(ctx, a.filename, a.build.job.name, a.build.number)
	if err != nil {
		return err
	}

	if !valid || (strict && fp.Unknown()) {
		return fmt.Errorf("%w: %s (fingerprint %s)", jenkins.ErrBrokenArtifact, a.relativePath, fp.ID())
	}

	return nil
}
