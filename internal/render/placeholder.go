package render

import (
	"fmt"
	"net/url"
	"strings"

	"saree-studio/internal/design"
)

const placeholderHost = "https://placehold.co/"

type frame struct {
	Width, Height int
	Background    string
}

var stageFrames = map[design.Stage]frame{
	design.StageInitial: {Width: 1000, Height: 200, Background: "C62828"},
	design.StagePreview: {Width: 1000, Height: 200, Background: "C62828"},
	design.StageFinal:   {Width: 1500, Height: 300, Background: "4A0404"},
}

var motifFrames = map[design.Region]frame{
	design.RegionBorder: {Width: 800, Height: 200, Background: "8B0000"},
	design.RegionBody:   {Width: 400, Height: 400, Background: "8B0000"},
	design.RegionPallu:  {Width: 800, Height: 400, Background: "8B0000"},
}

// StagePlaceholder is the stand-in image for a failed saree generation.
func StagePlaceholder(stage design.Stage, label string) string {
	f, ok := stageFrames[stage]
	if !ok {
		f = stageFrames[design.StagePreview]
	}
	return placeholderURL(f, label)
}

// MotifPlaceholder is the stand-in for motif slot i (1-based) of a search.
func MotifPlaceholder(region design.Region, label string, slot int) string {
	f, ok := motifFrames[region]
	if !ok {
		f = motifFrames[design.RegionBody]
	}
	return placeholderURL(f, fmt.Sprintf("%s %d", label, slot))
}

// IsPlaceholder reports whether an image handle follows the placeholder
// convention rather than being a generated image.
func IsPlaceholder(image string) bool {
	return image == "" || strings.HasPrefix(image, placeholderHost)
}

func placeholderURL(f frame, label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Saree"
	}
	if len(label) > 40 {
		label = label[:40]
	}
	return fmt.Sprintf("%s%dx%d/%s/FFD700?text=%s", placeholderHost, f.Width, f.Height, f.Background, url.QueryEscape(label))
}
