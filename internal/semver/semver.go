package semver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

const pattern = `^v(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)\.(0|[1-9][0-9]*)$`

var ErrParse = errors.New("could not parse provided string into semantic version")

type Comparison int

const (
	CompareEqual Comparison = iota
	CompareOldMajor
	CompareNewMajor
	CompareOldMinor
	CompareNewMinor
	CompareOldPatch
	CompareNewPatch
)

type Version struct {
	Major int `json:"major,omitempty"`
	Minor int `json:"minor,omitempty"`
	Patch int `json:"patch,omitempty"`
}

// Parse parses the the provided string into a semver representation.
func Parse(s string) (Version, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Version{}, fmt.Errorf("compiling regex: %w", err)
	}
	if !re.MatchString(s) {
		return Version{}, ErrParse
	}
	split := strings.Split(s[1:], ".")
	ver := Version{}
	ver.Major, err = strconv.Atoi(split[0])
	if err != nil {
		return Version{}, fmt.Errorf("parsing Major to int: %w", err)
	}
	ver.Minor, err = strconv.Atoi(split[1])
	if err != nil {
		return Version{}, fmt.Errorf("parsing Minor to int: %w", err)
	}
	ver.Patch, err = strconv.Atoi(split[2])
	if err != nil {
		return Version{}, fmt.Errorf("parsing Patch to int: %w", err)
	}

	return ver, nil
}

// String returns a string representation of the semver.
func (sv Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", sv.Major, sv.Minor, sv.Patch)
}

// Compare compares the semver against the provided oracle statement.
func (sv Version) Compare(oracle Version) Comparison {
	switch {
	case sv.Major < oracle.Major:
		return CompareOldMajor
	case sv.Major > oracle.Major:
		return CompareNewMajor
	case sv.Minor < oracle.Minor:
		return CompareOldMinor
	case sv.Minor > oracle.Minor:
		return CompareNewMinor
	case sv.Patch < oracle.Patch:
		return CompareOldPatch
	case sv.Patch > oracle.Patch:
		return CompareNewPatch
	default:
		return CompareEqual
	}
}

// GetServerVersion fetches the version of the server exposing its admin endpoints on addr.
func GetServerVersion(ctx context.Context, addr string) (Version, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/version", addr), nil)
	if err != nil {
		return Version{}, fmt.Errorf("creating version request: %w", err)
	}
	r, err := http.DefaultClient.Do(req)
	if err != nil {
		return Version{}, fmt.Errorf("fetching the version from server: %w", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		return Version{}, fmt.Errorf("fetching the version from server: unexpected status %s", r.Status)
	}
	var version Version
	if err := json.NewDecoder(r.Body).Decode(&version); err != nil {
		return Version{}, fmt.Errorf("decoding version response from server: %w", err)
	}
	return version, nil
}
