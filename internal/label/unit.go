package label

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit is a label dimension unit. Dots are device-dependent and need a
// DPI to convert to or from physical units.
type Unit string

const (
	UnitInches Unit = "inches"
	UnitMM     Unit = "mm"
	UnitDots   Unit = "dots"
)

const MMPerInch = 25.4

var (
	ErrInvalidSize = errors.New("invalid size")
	ErrDPIRequired = errors.New("dpi required for dots conversion")
	ErrUnknownUnit = errors.New("unknown unit")
)

// ParseUnit normalizes unit aliases. Unknown or empty input falls back
// to inches, matching how persisted records without a unit are read.
func ParseUnit(s string) Unit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mm", "millimeter", "millimeters":
		return UnitMM
	case "dots", "dot":
		return UnitDots
	default:
		return UnitInches
	}
}

func InchesToMM(in float64) float64 { return in * MMPerInch }
func MMToInches(mm float64) float64 { return mm / MMPerInch }

func InchesToDots(in float64, dpi int) (int, error) {
	if dpi <= 0 {
		return 0, ErrDPIRequired
	}
	return int(math.Round(in * float64(dpi))), nil
}

func MMToDots(mm float64, dpi int) (int, error) {
	return InchesToDots(MMToInches(mm), dpi)
}

func DotsToInches(dots, dpi int) (float64, error) {
	if dpi <= 0 {
		return 0, ErrDPIRequired
	}
	return float64(dots) / float64(dpi), nil
}

func DotsToMM(dots, dpi int) (float64, error) {
	in, err := DotsToInches(dots, dpi)
	if err != nil {
		return 0, err
	}
	return InchesToMM(in), nil
}

// ParseSizeString parses a WxH dimension string. Accepted forms include
// `4x6`, `4"x6"`, `101.6x152.4mm`, `4x6in` and `4x6inches`; the unit
// defaults to inches when no suffix is present.
func ParseSizeString(s string) (width, height float64, unit Unit, err error) {
	cleaned := strings.ToLower(strings.TrimSpace(s))
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, `"`, "")

	if cleaned == "" {
		return 0, 0, "", fmt.Errorf("%w: empty size string", ErrInvalidSize)
	}

	unit = UnitInches
	switch {
	case strings.HasSuffix(cleaned, "mm"):
		unit = UnitMM
		cleaned = strings.TrimSuffix(cleaned, "mm")
	case strings.HasSuffix(cleaned, "dots"):
		unit = UnitDots
		cleaned = strings.TrimSuffix(cleaned, "dots")
	case strings.HasSuffix(cleaned, "inches"):
		cleaned = strings.TrimSuffix(cleaned, "inches")
	case strings.HasSuffix(cleaned, "in"):
		cleaned = strings.TrimSuffix(cleaned, "in")
	}

	parts := strings.Split(cleaned, "x")
	if len(parts) != 2 {
		return 0, 0, "", fmt.Errorf("%w: %q must be in WxH form", ErrInvalidSize, s)
	}

	width, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: width %q is not numeric", ErrInvalidSize, parts[0])
	}
	height, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: height %q is not numeric", ErrInvalidSize, parts[1])
	}

	if width <= 0 || height <= 0 {
		return 0, 0, "", fmt.Errorf("%w: dimensions must be positive, got %gx%g", ErrInvalidSize, width, height)
	}

	return width, height, unit, nil
}

// FormatSizeString renders W and H back into the canonical string form
// for the unit: bare numbers for inches, an `mm` suffix for millimeters
// and whole numbers with a `dots` suffix for dots. Trailing zeros are
// stripped so 4.0x6.0 inches comes out as `4x6`.
func FormatSizeString(width, height float64, unit Unit, precision int) string {
	if unit == UnitDots {
		return fmt.Sprintf("%dx%ddots", int(math.Round(width)), int(math.Round(height)))
	}

	w := formatDim(width, precision)
	h := formatDim(height, precision)
	if unit == UnitMM {
		return w + "x" + h + "mm"
	}
	return w + "x" + h
}

func formatDim(v float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// ConvertValue converts a single dimension between units. dpi may be
// zero unless dots are involved.
func ConvertValue(v float64, from, to Unit, dpi int) (float64, error) {
	if from == to {
		return v, nil
	}

	var inches float64
	switch from {
	case UnitInches:
		inches = v
	case UnitMM:
		inches = MMToInches(v)
	case UnitDots:
		in, err := DotsToInches(int(math.Round(v)), dpi)
		if err != nil {
			return 0, err
		}
		inches = in
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}

	switch to {
	case UnitInches:
		return inches, nil
	case UnitMM:
		return InchesToMM(inches), nil
	case UnitDots:
		dots, err := InchesToDots(inches, dpi)
		if err != nil {
			return 0, err
		}
		return float64(dots), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
}
