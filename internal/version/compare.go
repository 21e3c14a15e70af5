package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// CheckSchemaCompatibility checks whether state written with storedVersion can be
// loaded by a build writing currentVersion.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor and patch versions can differ; unknown fields are ignored on load
//
// Examples:
//   - Current 1.0.0, Stored 1.0.0 -> OK (exact match)
//   - Current 1.2.0, Stored 1.0.3 -> OK (minor differs)
//   - Current 2.0.0, Stored 1.4.0 -> ERROR (major differs)
//   - Current 1.0.0, Stored main  -> OK (dev build, skip check)
func CheckSchemaCompatibility(currentVersion, storedVersion string) error {
	// Strip 'v' prefix if present for consistency
	currentVersion = strings.TrimPrefix(currentVersion, "v")
	storedVersion = strings.TrimPrefix(storedVersion, "v")

	// Skip version check for "main" (development builds)
	if currentVersion == "main" || storedVersion == "main" {
		return nil
	}

	currentSemver, err := semver.NewVersion(currentVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid current schema version '%s'", currentVersion)
	}

	storedSemver, err := semver.NewVersion(storedVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid stored schema version '%s'", storedVersion)
	}

	if currentSemver.Major() != storedSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch, "major version mismatch: desk reads %d.x.x but state was written as %d.x.x",
			currentSemver.Major(), storedSemver.Major())
	}

	return nil
}
