package compiler

import (
	"fmt"

	semver "github.com/Masterminds/semver/v3"

	"github.com/roach88/tierprobe/internal/ir"
)

// CheckEngineVersion reports whether ir.EngineVersion satisfies constraint,
// e.g. ">=0.1.0 <1.0.0". An empty constraint accepts any version.
func CheckEngineVersion(constraint string) error {
	return checkVersion(constraint, ir.EngineVersion)
}

func checkVersion(constraint, version string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid engine constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid engine version %q: %w", version, err)
	}
	if ok, errs := c.Validate(v); !ok {
		if len(errs) > 0 {
			return fmt.Errorf("engine %s does not satisfy %q: %v", version, constraint, errs[0])
		}
		return fmt.Errorf("engine %s does not satisfy %q", version, constraint)
	}
	return nil
}
