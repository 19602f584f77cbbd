package design

import "strings"

type NamedColor struct {
	Name  string
	Value string
}

type BorderSize struct {
	Key    string
	Label  string
	Inches int
}

// PresetDesign is one entry of the static motif catalog rendered by the
// preset generator.
type PresetDesign struct {
	Name     string
	Keyword  string
	Category string
}

var borderCategories = []string{"Temple", "Floral", "Geometric", "Animal", "Traditional", "Sacred"}

var bodyCategories = []string{"Plain", "Buttas", "Checks", "Paisley", "Geometric", "Forest", "Korvai", "Stripes"}

var palluCategories = []string{"Grand", "Temple", "Mythical", "Floral", "Geometric", "Animal", "Minimal"}

var zariLevels = []string{"Light", "Medium", "Heavy"}

var borderSizes = []BorderSize{
	{Key: "Small", Label: "Small", Inches: 1},
	{Key: "Medium", Label: "Medium", Inches: 2},
	{Key: "Large", Label: "Large", Inches: 3},
	{Key: "XLarge", Label: "Extra Large", Inches: 4},
}

var colorPresets = []NamedColor{
	{Name: "Classic Maroon", Value: "#8B0000"},
	{Name: "Royal Blue", Value: "#000080"},
	{Name: "Emerald Green", Value: "#046307"},
	{Name: "Deep Purple", Value: "#4B0082"},
	{Name: "Rust Orange", Value: "#B7410E"},
	{Name: "Golden Yellow", Value: "#FFD700"},
	{Name: "Peacock Blue", Value: "#005F73"},
	{Name: "Magenta", Value: "#8B008B"},
	{Name: "Teal", Value: "#008080"},
	{Name: "Wine Red", Value: "#722F37"},
}

var presetDesigns = map[Region][]PresetDesign{
	RegionBorder: {
		{Name: "temple_border", Keyword: "temple gopuram towers", Category: "Temple"},
		{Name: "peacock", Keyword: "peacock feathers", Category: "Animal"},
		{Name: "mallinaggu", Keyword: "jasmine flower buds chain", Category: "Floral"},
		{Name: "rettai_pattu", Keyword: "double silk weave pattern", Category: "Traditional"},
		{Name: "gopuram", Keyword: "temple tower spires", Category: "Temple"},
		{Name: "rudraksha", Keyword: "rudraksha beads chain", Category: "Sacred"},
	},
	RegionBody: {
		{Name: "butta_small", Keyword: "small scattered floral buttas", Category: "Buttas"},
		{Name: "vanasingaram", Keyword: "forest trees and nature", Category: "Forest"},
		{Name: "checks", Keyword: "geometric check pattern", Category: "Checks"},
		{Name: "paisley", Keyword: "paisley mango motifs", Category: "Paisley"},
		{Name: "stripe_korvai", Keyword: "korvai stripe weave", Category: "Korvai"},
		{Name: "plain_weave", Keyword: "plain silk texture", Category: "Plain"},
	},
	RegionPallu: {
		{Name: "grand_peacock", Keyword: "grand peacock with spread feathers", Category: "Grand"},
		{Name: "mythological_scene", Keyword: "hindu mythology scene with deities", Category: "Mythical"},
		{Name: "floral_cascade", Keyword: "cascading flowers and vines", Category: "Floral"},
		{Name: "temple_architecture", Keyword: "dravidian temple architecture", Category: "Temple"},
		{Name: "geometric_mandala", Keyword: "intricate geometric mandala", Category: "Geometric"},
		{Name: "royal_elephant", Keyword: "decorated royal elephant", Category: "Animal"},
	},
}

func ZariTypes() []Zari {
	return []Zari{ZariGold, ZariSilver, ZariCopper}
}

func ZariLevels() []string {
	return append([]string(nil), zariLevels...)
}

// Categories returns the enumerated design categories of a region.
func Categories(r Region) []string {
	switch r {
	case RegionBorder:
		return append([]string(nil), borderCategories...)
	case RegionBody:
		return append([]string(nil), bodyCategories...)
	case RegionPallu:
		return append([]string(nil), palluCategories...)
	}
	return nil
}

func BorderSizes() []BorderSize {
	return append([]BorderSize(nil), borderSizes...)
}

func LookupBorderSize(value string) (BorderSize, bool) {
	value = strings.TrimSpace(value)
	for _, s := range borderSizes {
		if strings.EqualFold(s.Key, value) || strings.EqualFold(s.Label, value) {
			return s, true
		}
	}
	return BorderSize{}, false
}

func ColorPresets() []NamedColor {
	return append([]NamedColor(nil), colorPresets...)
}

// ColorName returns the preset name for a color value, or the value itself.
func ColorName(value string) string {
	for _, c := range colorPresets {
		if strings.EqualFold(c.Value, value) {
			return c.Name
		}
	}
	return value
}

func PresetDesigns(r Region) []PresetDesign {
	return append([]PresetDesign(nil), presetDesigns[r]...)
}
