package client

import (
	"strconv"

	"github.com/fivetwenty-io/jenkins-client/pkg/jenkins"
)

// revisionReader extracts a revision from a build snapshot for one VCS kind.
type revisionReader func(b *Build) (string, bool)

// revisionReaders is keyed by changeSet.kind.
var revisionReaders = map[string]revisionReader{
	"svn": svnRevision,
	"git": gitRevision,
	"hg":  hgRevision,
}

// changeSet returns the build's change set. Pipeline builds report a
// changeSets list instead; the first entry is used.
func (b *Build) changeSet() jenkins.Document {
	doc := b.Snapshot()

	if cs, err := doc.Map("changeSet"); err == nil {
		return cs
	}

	if sets := doc.ListOrEmpty("changeSets"); len(sets) > 0 {
		return sets[0]
	}

	return jenkins.Document{}
}

// Revision implements jenkins.Build.
func (b *Build) Revision() (string, bool) {
	kind := b.changeSet().StringOr("", "kind")

	reader, ok := revisionReaders[kind]
	if !ok {
		b.log().Debug("revision unavailable for change set kind", map[string]interface{}{
			"build": b.String(),
			"kind":  kind,
		})

		return "", false
	}

	return reader(b)
}

// RevisionBranches implements jenkins.Build.
func (b *Build) RevisionBranches() []jenkins.Document {
	return b.Actions().ListOrEmpty("lastBuiltRevision", "branch")
}

// svnRevision is the highest revision in the change set.
func svnRevision(b *Build) (string, bool) {
	best, found := 0, false

	for _, r := range b.changeSet().ListOrEmpty("revisions") {
		n, err := r.Int("revision")
		if err != nil {
			continue
		}

		if !found || n > best {
			best, found = n, true
		}
	}

	if !found {
		return "", false
	}

	return strconv.Itoa(best), true
}

// gitRevision prefers the origin/HEAD branch and falls back to the last
// built SHA1.
func gitRevision(b *Build) (string, bool) {
	actions := b.Actions()

	for _, branch := range actions.ListOrEmpty("lastBuiltRevision", "branch") {
		if branch.StringOr("", "name") != "origin/HEAD" {
			continue
		}

		if sha := branch.StringOr("", "SHA1"); sha != "" {
			return sha, true
		}
	}

	sha := actions.StringOr("", "lastBuiltRevision", "SHA1")

	return sha, sha != ""
}

func hgRevision(b *Build) (string, bool) {
	node := b.Actions().StringOr("", "mercurialNodeName")

	return node, node != ""
}
