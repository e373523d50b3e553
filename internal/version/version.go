// Package version assigns and tracks semantic versions for contract
// snapshots. Version state is derived from directory scans of the
// specifications directory; the "latest" pointer is always recomputed from
// the highest version on disk rather than trusted.
package version

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/getkin/kin-openapi/openapi3"
)

// Bump selects how the next version number is derived.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
	// BumpAuto derives the bump kind from a change analysis against the
	// latest version.
	BumpAuto Bump = "auto"
)

// Version is a strict semantic version triple. Raw version strings never
// cross a package boundary: they are parsed here or rejected.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// Parse validates and parses a plain MAJOR.MINOR.PATCH string. Pre-release
// and build metadata are rejected; versioned filenames carry bare triples.
func Parse(s string) (Version, error) {
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, fmt.Errorf("invalid version %q: pre-release and build metadata are not supported", s)
	}
	return Version{Major: sv.Major(), Minor: sv.Minor(), Patch: sv.Patch()}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 ordering v against o.
func (v Version) Compare(o Version) int {
	return semver.New(v.Major, v.Minor, v.Patch, "", "").Compare(semver.New(o.Major, o.Minor, o.Patch, "", ""))
}

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// Bumped returns a new version with the given bump applied. A bump always
// strictly increases the triple and zeroes the lower components.
func (v Version) Bumped(b Bump) (Version, error) {
	switch b {
	case BumpMajor:
		return Version{Major: v.Major + 1}, nil
	case BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}, nil
	case BumpPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	default:
		return Version{}, fmt.Errorf("cannot bump with %q", b)
	}
}

// VersionedSpec is an immutable on-disk snapshot of a contract at one
// version. A new version is always a new file, never an in-place edit.
type VersionedSpec struct {
	Name      string
	Version   Version
	FilePath  string
	Doc       *openapi3.T
	CreatedAt time.Time
}
