package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidFirmwareVersion is returned for anything that is not "X.Y.Z".
var ErrInvalidFirmwareVersion = errors.New("invalid firmware version format")

// ParseFirmwareVersion splits "major.minor.patch" into its components.
// Each component must be a non-negative base-10 integer.
func ParseFirmwareVersion(version string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return out, fmt.Errorf("%w: %q", ErrInvalidFirmwareVersion, version)
	}
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, "+- ") {
			return out, fmt.Errorf("%w: %q", ErrInvalidFirmwareVersion, version)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("%w: %q", ErrInvalidFirmwareVersion, version)
		}
		out[i] = n
	}
	return out, nil
}

// IncrementMajorVersion bumps the major component and resets the rest:
// "1.4.2" becomes "2.0.0".
func IncrementMajorVersion(version string) (string, error) {
	parts, err := ParseFirmwareVersion(version)
	if err != nil {
		return "", err
	}
	if parts[0] == math.MaxInt {
		return "", fmt.Errorf("%w: major version %d cannot be incremented", ErrInvalidFirmwareVersion, parts[0])
	}
	return fmt.Sprintf("%d.0.0", parts[0]+1), nil
}
