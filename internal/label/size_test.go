package label

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeEqualAcrossUnits(t *testing.T) {
	inches, err := NewSize(4, 6, UnitInches)
	require.NoError(t, err)
	mm, err := NewSize(101.6, 152.4, UnitMM)
	require.NoError(t, err)

	assert.True(t, inches.Equal(mm))
	assert.True(t, mm.Equal(inches))

	other, err := NewSize(4, 6.01, UnitInches)
	require.NoError(t, err)
	assert.False(t, inches.Equal(other))
}

func TestSizeCompatibleWithinTolerance(t *testing.T) {
	supported, _ := NewSize(4, 6, UnitInches)
	requested, _ := NewSize(100, 152, UnitMM)

	// 100mm is ~3.937in, within the default 0.1in tolerance of 4in.
	assert.True(t, supported.CompatibleWith(requested, DefaultCompatTolerance))

	tooSmall, _ := NewSize(90, 152, UnitMM)
	assert.False(t, supported.CompatibleWith(tooSmall, DefaultCompatTolerance))
}

func TestSizeConvertTo(t *testing.T) {
	s, _ := NewSize(4, 6, UnitInches)

	mm, err := s.ConvertTo(UnitMM, 0)
	require.NoError(t, err)
	assert.InDelta(t, 101.6, mm.Width, 1e-9)
	assert.InDelta(t, 152.4, mm.Height, 1e-9)

	dots, err := s.ConvertTo(UnitDots, 203)
	require.NoError(t, err)
	assert.InDelta(t, 812, dots.Width, 0.5)
	assert.InDelta(t, 1218, dots.Height, 0.5)

	_, err = s.ConvertTo(UnitDots, 0)
	assert.ErrorIs(t, err, ErrDPIRequired)
}

func TestSizeToDots(t *testing.T) {
	s, _ := NewSize(101.6, 152.4, UnitMM)

	w, h, err := s.ToDots(203)
	require.NoError(t, err)
	assert.Equal(t, 812, w)
	assert.Equal(t, 1218, h)
}

func TestSizeStringForms(t *testing.T) {
	s, _ := NewSize(4, 6, UnitInches)
	assert.Equal(t, "4x6", s.String())

	mm, _ := NewSize(101.6, 152.4, UnitMM)
	assert.Equal(t, "101.6x152.4mm", mm.String())

	legacy, err := mm.LegacyString()
	require.NoError(t, err)
	assert.Equal(t, "4x6", legacy)
}

func TestSizeJSONRoundTrip(t *testing.T) {
	in, _ := NewSize(2.25, 1.25, UnitInches)

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"width":2.25,"height":1.25,"unit":"inches"}`, string(data))

	var out Size
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Equal(out))
}

func TestNewSizeRejectsNonPositive(t *testing.T) {
	_, err := NewSize(0, 6, UnitInches)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = NewSize(4, -1, UnitMM)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestValidateSizeString(t *testing.T) {
	size, err := ValidateSizeString("101.6x152.4mm")
	require.NoError(t, err)
	assert.Equal(t, UnitMM, size.Unit)

	_, err = ValidateSizeString("0.05x6")
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = ValidateSizeString("13x6")
	assert.ErrorIs(t, err, ErrInvalidSize)

	// Dots cannot be range checked without a DPI.
	_, err = ValidateSizeString("812x1218dots")
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestValidateLegacySizeString(t *testing.T) {
	assert.NoError(t, ValidateLegacySizeString("4x6"))
	assert.NoError(t, ValidateLegacySizeString("2.25x1.25"))
	assert.Error(t, ValidateLegacySizeString("4x6mm"))
	assert.Error(t, ValidateLegacySizeString("13x6"))
	assert.Error(t, ValidateLegacySizeString("4"))
}
