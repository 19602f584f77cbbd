package render

import (
	"strings"

	"saree-studio/internal/design"
)

// Tiers maps generation stages to model identifiers. Initial and preview
// share the fast tier; final uses the quality tier.
type Tiers struct {
	Preview string
	Final   string
	Motif   string
}

func (t Tiers) ModelFor(stage design.Stage) string {
	switch stage {
	case design.StageFinal:
		return firstNonEmpty(t.Final, t.Preview)
	case design.StageMotif:
		return firstNonEmpty(t.Motif, t.Preview)
	default:
		return t.Preview
	}
}

// Aspect ratios requested from the service. 5:1 is not a supported output
// ratio, so saree frames ask for the widest one and the prompt pins 5:1.
const (
	sareeAspect = "21:9"
)

var motifAspects = map[design.Region]string{
	design.RegionBorder: "21:9",
	design.RegionBody:   "1:1",
	design.RegionPallu:  "16:9",
}

func motifAspect(r design.Region) string {
	if ar, ok := motifAspects[r]; ok {
		return ar
	}
	return "1:1"
}

var previewLabels = map[design.Region]string{
	design.RegionBorder: "Border pattern reference:",
	design.RegionBody:   "Body pattern reference:",
	design.RegionPallu:  "Pallu design reference:",
}

var finalLabels = map[design.Region]string{
	design.RegionBorder: "Border pattern reference (use this exact design):",
	design.RegionBody:   "Body pattern reference (use this exact design):",
	design.RegionPallu:  "Pallu design reference (use this exact design):",
}

func referenceLabel(stage design.Stage, r design.Region) string {
	if stage == design.StageFinal {
		return finalLabels[r]
	}
	return previewLabels[r]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
