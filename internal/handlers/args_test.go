package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saree-studio/internal/design"
)

func TestParseColors(t *testing.T) {
	colors, err := parseColors(" #8B0000  #D4AF37 #4A0404 ")
	require.NoError(t, err)
	assert.Equal(t, "#8B0000", colors.Body)
	assert.Equal(t, "#D4AF37", colors.Border)
	assert.Equal(t, "#4A0404", colors.Pallu)

	_, err = parseColors("#8B0000 #D4AF37")
	assert.ErrorIs(t, err, errUsage)
}

func TestSplitRegion(t *testing.T) {
	r, rest, err := splitRegion("Border  peacock feathers ")
	require.NoError(t, err)
	assert.Equal(t, design.RegionBorder, r)
	assert.Equal(t, "peacock feathers", rest)

	r, rest, err = splitRegion("pallu")
	require.NoError(t, err)
	assert.Equal(t, design.RegionPallu, r)
	assert.Empty(t, rest)

	_, _, err = splitRegion("")
	assert.ErrorIs(t, err, errUsage)

	_, _, err = splitRegion("sleeve lotus")
	assert.ErrorIs(t, err, design.ErrUnknownRegion)
}

func TestParseCaption(t *testing.T) {
	r, pattern, ok := parseCaption("body Mango Buttas")
	require.True(t, ok)
	assert.Equal(t, design.RegionBody, r)
	assert.Equal(t, "Mango Buttas", pattern)

	_, _, ok = parseCaption("my favourite pattern")
	assert.False(t, ok)
}

func TestAlbumRegions(t *testing.T) {
	tests := []struct {
		caption string
		n       int
		want    []design.Region
	}{
		{"", 3, []design.Region{design.RegionBorder, design.RegionBody, design.RegionPallu}},
		{"pallu, body", 2, []design.Region{design.RegionPallu, design.RegionBody}},
		{"pallu", 3, []design.Region{design.RegionPallu, design.RegionBorder, design.RegionBody}},
		{"body body border", 5, []design.Region{design.RegionBody, design.RegionBorder, design.RegionPallu}},
		{"border", 1, []design.Region{design.RegionBorder}},
	}
	for _, tc := range tests {
		t.Run(tc.caption, func(t *testing.T) {
			assert.Equal(t, tc.want, albumRegions(tc.caption, tc.n))
		})
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	data := cb(42, "use", "border", "3")
	assert.Equal(t, "sd:42:use:border:3", data)

	owner, action, args, ok := parseCallback(data)
	require.True(t, ok)
	assert.Equal(t, int64(42), owner)
	assert.Equal(t, "use", action)
	assert.Equal(t, []string{"border", "3"}, args)

	for _, bad := range []string{"", "pv:42:menu", "sd:x:menu", "sd:42", "sd:42:"} {
		_, _, _, ok := parseCallback(bad)
		assert.False(t, ok, bad)
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	for _, c := range design.ColorPresets() {
		assert.LessOrEqual(t, len(cb(9_999_999_999, "color", "border", c.Value[1:])), 64)
	}
}
