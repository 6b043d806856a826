package label

import (
	"fmt"
	"math"
)

const (
	// EqualityEpsilon is the inch tolerance below which two sizes are
	// considered the same physical size.
	EqualityEpsilon = 0.001

	// DefaultCompatTolerance is the inch tolerance used when matching a
	// requested size against a printer's supported sizes.
	DefaultCompatTolerance = 0.1
)

// Size is a physical label size. Width and Height are expressed in Unit.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   Unit    `json:"unit"`
}

// NewSize builds a validated Size. Dimensions must be positive and the
// unit is normalized through ParseUnit.
func NewSize(width, height float64, unit Unit) (Size, error) {
	if width <= 0 || height <= 0 {
		return Size{}, fmt.Errorf("%w: dimensions must be positive, got %gx%g", ErrInvalidSize, width, height)
	}
	return Size{Width: width, Height: height, Unit: ParseUnit(string(unit))}, nil
}

// SizeFromString parses a dimension string into a Size.
func SizeFromString(s string) (Size, error) {
	w, h, unit, err := ParseSizeString(s)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: w, Height: h, Unit: unit}, nil
}

// ToInches returns the dimensions normalized to inches. Sizes in dots
// cannot be normalized without a DPI and report ErrDPIRequired.
func (s Size) ToInches() (float64, float64, error) {
	switch s.Unit {
	case UnitInches:
		return s.Width, s.Height, nil
	case UnitMM:
		return MMToInches(s.Width), MMToInches(s.Height), nil
	case UnitDots:
		return 0, 0, ErrDPIRequired
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownUnit, s.Unit)
	}
}

// ToMM returns the dimensions normalized to millimeters.
func (s Size) ToMM() (float64, float64, error) {
	w, h, err := s.ToInches()
	if err != nil {
		return 0, 0, err
	}
	return InchesToMM(w), InchesToMM(h), nil
}

// ToDots converts the dimensions to printer dots at the given DPI.
func (s Size) ToDots(dpi int) (int, int, error) {
	if s.Unit == UnitDots {
		return int(math.Round(s.Width)), int(math.Round(s.Height)), nil
	}
	w, h, err := s.ToInches()
	if err != nil {
		return 0, 0, err
	}
	wd, err := InchesToDots(w, dpi)
	if err != nil {
		return 0, 0, err
	}
	hd, err := InchesToDots(h, dpi)
	if err != nil {
		return 0, 0, err
	}
	return wd, hd, nil
}

// ConvertTo returns an equivalent Size expressed in the target unit.
// dpi may be zero unless dots are involved on either side.
func (s Size) ConvertTo(unit Unit, dpi int) (Size, error) {
	w, err := ConvertValue(s.Width, s.Unit, unit, dpi)
	if err != nil {
		return Size{}, err
	}
	h, err := ConvertValue(s.Height, s.Unit, unit, dpi)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: w, Height: h, Unit: unit}, nil
}

// Format renders the size in its own unit at the given precision.
func (s Size) Format(precision int) string {
	return FormatSizeString(s.Width, s.Height, s.Unit, precision)
}

func (s Size) String() string {
	return s.Format(1)
}

// LegacyString is the normalized inch form used by older printer
// records, e.g. `4x6` for 101.6x152.4mm.
func (s Size) LegacyString() (string, error) {
	w, h, err := s.ToInches()
	if err != nil {
		return "", err
	}
	return FormatSizeString(w, h, UnitInches, 1), nil
}

// Equal reports whether two sizes describe the same physical label,
// comparing in inches within EqualityEpsilon. Dot-based sizes compare
// exactly in dots since they cannot be normalized without a DPI.
func (s Size) Equal(other Size) bool {
	if s.Unit == UnitDots || other.Unit == UnitDots {
		return s.Unit == other.Unit &&
			math.Round(s.Width) == math.Round(other.Width) &&
			math.Round(s.Height) == math.Round(other.Height)
	}

	w1, h1, err := s.ToInches()
	if err != nil {
		return false
	}
	w2, h2, err := other.ToInches()
	if err != nil {
		return false
	}
	return math.Abs(w1-w2) < EqualityEpsilon && math.Abs(h1-h2) < EqualityEpsilon
}

// CompatibleWith reports whether other is close enough to s for
// printing, within tolIn inches per dimension.
func (s Size) CompatibleWith(other Size, tolIn float64) bool {
	if tolIn <= 0 {
		tolIn = DefaultCompatTolerance
	}

	w1, h1, err := s.ToInches()
	if err != nil {
		return false
	}
	w2, h2, err := other.ToInches()
	if err != nil {
		return false
	}
	return math.Abs(w1-w2) <= tolIn && math.Abs(h1-h2) <= tolIn
}
