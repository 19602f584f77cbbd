package design

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrUnknownRegion   = errors.New("unknown region")
	ErrUnknownZari     = errors.New("unknown zari type")
	ErrInvalidColor    = errors.New("invalid color, expected #RRGGBB")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownSize     = errors.New("unknown border size")
	ErrUnknownLevel    = errors.New("unknown zari level")
	ErrNotApplicable   = errors.New("attribute does not apply to region")
)

type Region string

const (
	RegionBody   Region = "body"
	RegionBorder Region = "border"
	RegionPallu  Region = "pallu"
)

// Regions lists the garment regions in display order.
func Regions() []Region {
	return []Region{RegionBody, RegionBorder, RegionPallu}
}

func ParseRegion(value string) (Region, error) {
	switch Region(strings.ToLower(strings.TrimSpace(value))) {
	case RegionBody:
		return RegionBody, nil
	case RegionBorder:
		return RegionBorder, nil
	case RegionPallu:
		return RegionPallu, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRegion, value)
}

// Title returns the region name as it is written in prompts ("Border").
func (r Region) Title() string {
	if r == "" {
		return ""
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}

type Zari string

const (
	ZariGold   Zari = "Gold"
	ZariSilver Zari = "Silver"
	ZariCopper Zari = "Copper"
)

func ParseZari(value string) (Zari, error) {
	v := strings.TrimSpace(value)
	for _, z := range ZariTypes() {
		if strings.EqualFold(v, string(z)) {
			return z, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownZari, value)
}

type Stage string

const (
	StageInitial Stage = "initial"
	StagePreview Stage = "preview"
	StageFinal   Stage = "final"
	StageMotif   Stage = "motif-discovery"
)

// RegionConfig is the configuration of one garment region. An empty Color
// means the user has not chosen one yet; a non-empty MotifRef means the
// region carries a design rather than a flat color.
type RegionConfig struct {
	Color      string
	Pattern    string
	MotifRef   string
	Category   string
	Size       string // border only
	SizeInches int    // border only
	ZariLevel  string // body and pallu only
}

func (c RegionConfig) HasDesign() bool {
	return strings.TrimSpace(c.MotifRef) != ""
}

// State is the full configuration of one saree design session. It is a plain
// value: copying it yields an independent snapshot.
type State struct {
	Zari   Zari
	Body   RegionConfig
	Border RegionConfig
	Pallu  RegionConfig
}

func DefaultState() State {
	medium := borderSizes[1]
	return State{
		Zari: ZariGold,
		Body: RegionConfig{
			Category:  "Buttas",
			ZariLevel: "Medium",
		},
		Border: RegionConfig{
			Category:   "Temple",
			Size:       medium.Key,
			SizeInches: medium.Inches,
		},
		Pallu: RegionConfig{
			Category:  "Grand",
			ZariLevel: "Heavy",
		},
	}
}

func (s State) Region(r Region) RegionConfig {
	switch r {
	case RegionBody:
		return s.Body
	case RegionBorder:
		return s.Border
	case RegionPallu:
		return s.Pallu
	}
	return RegionConfig{}
}

// MissingColors returns the regions without a color, in display order.
func (s State) MissingColors() []Region {
	var out []Region
	for _, r := range Regions() {
		if s.Region(r).Color == "" {
			out = append(out, r)
		}
	}
	return out
}

// ReadyToRender reports whether zari and all three colors are set.
func (s State) ReadyToRender() bool {
	return s.Zari != "" && len(s.MissingColors()) == 0
}

func (s *State) SetZari(value string) error {
	z, err := ParseZari(value)
	if err != nil {
		return err
	}
	s.Zari = z
	return nil
}

// SetColor stores a normalized #RRGGBB value. An empty value unsets the color.
func (s *State) SetColor(r Region, value string) error {
	rc, err := s.region(r)
	if err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		rc.Color = ""
		return nil
	}
	color, err := NormalizeColor(value)
	if err != nil {
		return err
	}
	rc.Color = color
	return nil
}

func (s *State) SetPattern(r Region, name string) error {
	rc, err := s.region(r)
	if err != nil {
		return err
	}
	rc.Pattern = strings.TrimSpace(name)
	return nil
}

// SetMotif attaches a motif reference and its pattern name to a region. A
// new reference without a name clears the old name, which described a
// different image.
func (s *State) SetMotif(r Region, ref, pattern string) error {
	rc, err := s.region(r)
	if err != nil {
		return err
	}
	ref = strings.TrimSpace(ref)
	pattern = strings.TrimSpace(pattern)
	if pattern == "" && ref == rc.MotifRef {
		pattern = rc.Pattern
	}
	rc.MotifRef = ref
	rc.Pattern = pattern
	return nil
}

func (s *State) ClearMotif(r Region) error {
	rc, err := s.region(r)
	if err != nil {
		return err
	}
	rc.MotifRef = ""
	rc.Pattern = ""
	return nil
}

func (s *State) SetCategory(r Region, value string) error {
	rc, err := s.region(r)
	if err != nil {
		return err
	}
	cat, ok := lookupFold(Categories(r), value)
	if !ok {
		return fmt.Errorf("%w for %s: %q", ErrUnknownCategory, r, value)
	}
	rc.Category = cat
	return nil
}

// SetBorderSize sets the border width by size key (Small, Medium, Large, XLarge).
func (s *State) SetBorderSize(value string) error {
	size, ok := LookupBorderSize(value)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSize, value)
	}
	s.Border.Size = size.Key
	s.Border.SizeInches = size.Inches
	return nil
}

func (s *State) SetZariLevel(r Region, value string) error {
	if r == RegionBorder {
		return fmt.Errorf("%w: zari level on %s", ErrNotApplicable, r)
	}
	rc, err := s.region(r)
	if err != nil {
		return err
	}
	level, ok := lookupFold(ZariLevels(), value)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, value)
	}
	rc.ZariLevel = level
	return nil
}

func (s *State) region(r Region) (*RegionConfig, error) {
	switch r {
	case RegionBody:
		return &s.Body, nil
	case RegionBorder:
		return &s.Border, nil
	case RegionPallu:
		return &s.Pallu, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, r)
}

var hexColorRegex = regexp.MustCompile(`^#?([0-9a-fA-F]{6}|[0-9a-fA-F]{3})$`)

// NormalizeColor accepts #RGB or #RRGGBB (with or without '#') and returns
// the upper-case #RRGGBB form.
func NormalizeColor(value string) (string, error) {
	value = strings.TrimSpace(value)
	m := hexColorRegex.FindStringSubmatch(value)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, value)
	}
	hex := strings.ToUpper(m[1])
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	return "#" + hex, nil
}

func lookupFold(options []string, value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return o, true
		}
	}
	return "", false
}
