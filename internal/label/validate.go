package label

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MinDimensionInches and MaxDimensionInches bound what the service
	// accepts as a printable label dimension after unit normalization.
	MinDimensionInches = 0.1
	MaxDimensionInches = 12.0
)

var legacySizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)x(\d+(?:\.\d+)?)$`)

// ValidateSizeString parses a unit-aware size string and checks each
// dimension against the printable range in inches.
func ValidateSizeString(s string) (Size, error) {
	size, err := SizeFromString(s)
	if err != nil {
		return Size{}, err
	}
	if err := ValidateSize(size); err != nil {
		return Size{}, err
	}
	return size, nil
}

// ValidateSize checks an already-parsed size against the printable
// range in inches.
func ValidateSize(size Size) error {
	w, h, err := size.ToInches()
	if err != nil {
		return fmt.Errorf("%w: %gx%g %s cannot be normalized to inches", ErrInvalidSize, size.Width, size.Height, size.Unit)
	}

	for _, dim := range []float64{w, h} {
		if dim < MinDimensionInches || dim > MaxDimensionInches {
			return fmt.Errorf("%w: dimension %.3f in is outside %g-%g in", ErrInvalidSize, dim, MinDimensionInches, MaxDimensionInches)
		}
	}

	return nil
}

// ValidateLegacySizeString checks the strict inches-only WxH form used
// by older records, e.g. `4x6` or `2.25x1.25`.
func ValidateLegacySizeString(s string) error {
	m := legacySizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return fmt.Errorf("%w: %q must be in WxH form", ErrInvalidSize, s)
	}

	for _, part := range m[1:] {
		dim, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not numeric", ErrInvalidSize, part)
		}
		if dim <= 0 || dim > MaxDimensionInches {
			return fmt.Errorf("%w: dimension %g is outside 0-%g in", ErrInvalidSize, dim, MaxDimensionInches)
		}
	}

	return nil
}
