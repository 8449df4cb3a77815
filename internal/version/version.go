// Package version carries the devmux release version and the
// compatibility check applied to config files that declare the version
// they were written for.
package version

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Version is the semantic version of devmux.
const Version = "0.3.1"

// Parse parses a semantic version string.
func Parse(v string) (*version.Version, error) {
	return version.NewVersion(v)
}

// Current returns the running version, parsed. Panics if the Version
// constant is not a valid semantic version.
func Current() *version.Version {
	v, err := Parse(Version)
	if err != nil {
		panic(fmt.Sprintf("invalid version constant %q: %v", Version, err))
	}
	return v
}

// String returns the running version as a string.
func String() string {
	return Version
}

// CheckConfig reports whether a config file declaring declared is
// usable by this build: same major version, and not newer than the
// running release. An empty declaration is always accepted.
func CheckConfig(declared string) error {
	if declared == "" {
		return nil
	}
	v, err := Parse(declared)
	if err != nil {
		return fmt.Errorf("config version %q: %w", declared, err)
	}
	cur := Current()
	if v.Segments()[0] != cur.Segments()[0] {
		return fmt.Errorf("config version %s is incompatible with devmux %s", v, cur)
	}
	if v.GreaterThan(cur) {
		return fmt.Errorf("config version %s is newer than devmux %s", v, cur)
	}
	return nil
}
