package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSizeString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		width  float64
		height float64
		unit   Unit
	}{
		{"bare inches", "4x6", 4, 6, UnitInches},
		{"quoted inches", `4"x6"`, 4, 6, UnitInches},
		{"in suffix", "4x6in", 4, 6, UnitInches},
		{"inches suffix", "4x6inches", 4, 6, UnitInches},
		{"millimeters", "101.6x152.4mm", 101.6, 152.4, UnitMM},
		{"dots", "812x1218dots", 812, 1218, UnitDots},
		{"whitespace", "  2.25 x 1.25  ", 2.25, 1.25, UnitInches},
		{"uppercase unit", "50X25MM", 50, 25, UnitMM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, unit, err := ParseSizeString(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.width, w, 1e-9)
			assert.InDelta(t, tt.height, h, 1e-9)
			assert.Equal(t, tt.unit, unit)
		})
	}
}

func TestParseSizeStringErrors(t *testing.T) {
	for _, input := range []string{"", "4", "4x", "x6", "axb", "4x6x8", "-4x6", "0x6", "4x0"} {
		t.Run(input, func(t *testing.T) {
			_, _, _, err := ParseSizeString(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSize)
		})
	}
}

func TestFormatSizeString(t *testing.T) {
	assert.Equal(t, "4x6", FormatSizeString(4.0, 6.0, UnitInches, 1))
	assert.Equal(t, "2.25x1.25", FormatSizeString(2.25, 1.25, UnitInches, 2))
	assert.Equal(t, "101.6x152.4mm", FormatSizeString(101.6, 152.4, UnitMM, 1))
	assert.Equal(t, "812x1218dots", FormatSizeString(812, 1218, UnitDots, 0))
}

func TestConversionRoundTrip(t *testing.T) {
	mm := InchesToMM(4.0)
	assert.InDelta(t, 101.6, mm, 1e-9)
	assert.InDelta(t, 4.0, MMToInches(mm), 1e-9)

	dots, err := InchesToDots(4.0, 203)
	require.NoError(t, err)
	assert.Equal(t, 812, dots)

	back, err := DotsToInches(dots, 203)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, back, 0.005)
}

func TestDotsConversionRequiresDPI(t *testing.T) {
	_, err := InchesToDots(4.0, 0)
	assert.ErrorIs(t, err, ErrDPIRequired)

	_, err = DotsToMM(812, -1)
	assert.ErrorIs(t, err, ErrDPIRequired)
}

func TestParseUnitAliases(t *testing.T) {
	assert.Equal(t, UnitMM, ParseUnit("millimeters"))
	assert.Equal(t, UnitDots, ParseUnit("dot"))
	assert.Equal(t, UnitInches, ParseUnit("in"))
	assert.Equal(t, UnitInches, ParseUnit(""))
	assert.Equal(t, UnitInches, ParseUnit("furlongs"))
}
