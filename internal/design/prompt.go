package design

import (
	"fmt"
	"strings"
)

// SareeAspectRatio is the fixed frame of every saree preview and final image.
const SareeAspectRatio = "5:1"

// References marks which regions have a reference image attached to the
// request the prompt is built for.
type References struct {
	Body   bool
	Border bool
	Pallu  bool
}

func (r References) Has(region Region) bool {
	switch region {
	case RegionBody:
		return r.Body
	case RegionBorder:
		return r.Border
	case RegionPallu:
		return r.Pallu
	}
	return false
}

func (r *References) Set(region Region) {
	switch region {
	case RegionBody:
		r.Body = true
	case RegionBorder:
		r.Border = true
	case RegionPallu:
		r.Pallu = true
	}
}

type PromptOptions struct {
	Stage    Stage
	Attached References
	// Custom is a user note appended after the structural prompt.
	Custom string
}

// MotifBrief parameterizes a single-motif discovery prompt.
type MotifBrief struct {
	Region     Region
	Keyword    string
	Category   string
	Size       string
	SizeInches int
	Zari       Zari
	ZariLevel  string
}

// BuildPrompt renders the saree generation prompt for the initial, preview
// or final stage. Any other stage is rendered as preview. The output depends
// only on its arguments.
func BuildPrompt(st State, opts PromptOptions) string {
	var b strings.Builder
	b.Grow(4096)

	writeBase(&b)

	switch opts.Stage {
	case StageInitial:
		writeInitial(&b, st, opts.Attached)
	case StageFinal:
		writeFinal(&b, st, opts.Attached)
	default:
		writePreview(&b, st, opts.Attached)
	}

	writeExactColors(&b, st)

	if custom := strings.TrimSpace(opts.Custom); custom != "" {
		b.WriteString("ADDITIONAL NOTES:\n")
		b.WriteString("- " + custom + "\n")
	}

	return strings.TrimSpace(b.String())
}

// DescribeRegion is the one-line descriptor of a region. A pattern name is
// always kept, even when no reference image is attached.
func DescribeRegion(r Region, cfg RegionConfig, attached bool, zari Zari) string {
	name := strings.ToLower(string(r))
	color := colorPhrase(cfg.Color)
	pattern := strings.TrimSpace(cfg.Pattern)

	var desc string
	switch {
	case attached && pattern != "":
		desc = fmt.Sprintf("%s with %s pattern in %s color", name, pattern, color)
	case attached:
		desc = fmt.Sprintf("%s with the referenced motif pattern in %s color", name, color)
	case pattern != "":
		desc = fmt.Sprintf("%s in %s color with %s pattern (no reference image, weave it from the pattern name)", name, color, pattern)
	case cfg.Color == "":
		desc = fmt.Sprintf("plain %s, color not chosen yet", name)
	default:
		desc = fmt.Sprintf("plain %s colored %s", color, name)
	}
	return desc + ", " + zariPhrase(zari)
}

// BuildMotifPrompt renders the brief for exactly one tileable motif image.
// Batches are produced by repeating the call, never by asking for several
// designs in one prompt.
func BuildMotifPrompt(brief MotifBrief) string {
	keyword := strings.TrimSpace(brief.Keyword)
	category := strings.TrimSpace(brief.Category)
	zari := brief.Zari
	if zari == "" {
		zari = ZariGold
	}

	var b strings.Builder
	b.Grow(1024)

	switch brief.Region {
	case RegionBorder:
		b.WriteString("Generate ONE high-resolution border design motif for a traditional Kanjeevaram silk saree.\n\n")
		b.WriteString("DESIGN SPECIFICATION:\n")
		b.WriteString("- Keyword/theme: " + keyword + "\n")
		b.WriteString("- Border category: " + category + "\n")
		b.WriteString(fmt.Sprintf("- Border width: %s (%d inches)\n", fallback(brief.Size, "Medium"), brief.SizeInches))
		b.WriteString("- Zari type: " + string(zari) + "\n\n")
		writeSection(&b, "REQUIREMENTS", []string{
			"Horizontal strip aspect ratio (wide rectangle)",
			"Seamless, tileable repeating pattern",
			"Traditional South Indian handloom aesthetic",
			"Woven into the silk fabric, never printed or overlaid",
			"Zari appears as metallic threads interlaced with silk",
			"High contrast and detail suitable for real silk weaving",
		})
		writeSection(&b, "STYLE", []string{"No modern graphics", "No embroidery look", "No flat textures"})
		b.WriteString("OUTPUT: Generate exactly ONE border design image.")
	case RegionPallu:
		level := fallback(brief.ZariLevel, "Heavy")
		b.WriteString("Generate ONE high-resolution pallu design motif for a traditional Kanjeevaram silk saree.\n\n")
		b.WriteString("DESIGN SPECIFICATION:\n")
		b.WriteString("- Keyword/theme: " + keyword + "\n")
		b.WriteString("- Pallu category: " + category + "\n")
		b.WriteString("- Zari level: " + level + "\n")
		b.WriteString("- Zari type: " + string(zari) + "\n\n")
		writeSection(&b, "REQUIREMENTS", []string{
			"Horizontal rectangle aspect ratio (wide)",
			"Grand, ornate design for the decorative end of the saree",
			"Seamless edges so the design tiles across the pallu width",
			"Traditional South Indian handloom aesthetic",
			"Woven, layered appearance, never printed or flat",
			"Heavier and richer than typical body patterns",
			"Dense zari work matching the specified level (" + level + ")",
		})
		writeSection(&b, "STYLE", []string{"No flat illustrations", "No printed look", "No minimalism for high-zari categories"})
		b.WriteString("OUTPUT: Generate exactly ONE pallu design image.")
	default:
		level := fallback(brief.ZariLevel, "Medium")
		b.WriteString("Generate ONE high-resolution body pattern motif for a traditional Kanjeevaram silk saree.\n\n")
		b.WriteString("DESIGN SPECIFICATION:\n")
		b.WriteString("- Keyword/theme: " + keyword + "\n")
		b.WriteString("- Body category: " + category + "\n")
		b.WriteString("- Zari level: " + level + "\n")
		b.WriteString("- Zari type: " + string(zari) + "\n\n")
		writeSection(&b, "REQUIREMENTS", []string{
			"Square aspect ratio (1:1)",
			"Seamless, repeatable pattern for tiling across the saree body",
			"Traditional South Indian handloom aesthetic",
			"Woven into the silk fabric, never printed",
			"Zari usage matches the specified level (" + level + ")",
			"High contrast and detail suitable for real silk weaving",
		})
		writeSection(&b, "STYLE", []string{"No embroidery appearance", "No artificial shine", "No modern motifs unless the keyword asks for them"})
		b.WriteString("OUTPUT: Generate exactly ONE body pattern image.")
	}

	return strings.TrimSpace(b.String())
}

func writeBase(b *strings.Builder) {
	b.WriteString("TASK: Professional product photograph of a traditional Kanjeevaram silk saree in a full flat lay on a pure white background.\n\n")
	writeSection(b, "OUTPUT SPEC", []string{
		"Exactly ONE image of ONE saree",
		"Aspect ratio: EXACTLY " + SareeAspectRatio + " (horizontal, landscape orientation)",
		"The saree is fully unfolded and laid out horizontally, showing its complete 5.5 to 6 meter length",
		"Saree height approximately 48 inches, consistent with real-world proportions",
		"White or cream background, studio lighting, high-resolution textile photography",
		"Perfectly flat and wrinkle-free",
	})
	writeSection(b, "LAYOUT", []string{
		"A continuous body section with the pallu on the far right",
		"Borders run along the TOP and BOTTOM long edges for the entire length, including the pallu",
		"Borders also run along the LEFT and RIGHT short edges, forming a complete woven frame",
		"Short-edge border motifs face INWARD toward the body, never outward or upside-down",
	})
	writeSection(b, "FABRIC, NOT PRINT", []string{
		"Everything is continuous woven silk fabric",
		"Borders and motifs are woven into the saree structure, never printed, stitched, appliqued, or pasted",
		"Borders look thicker and structurally firmer than the body fabric",
		"Zari is metallic thread interwoven with silk, with realistic depth and sheen",
		"Natural silk grain and weave visible; no digitally pasted textures",
	})
	b.WriteString("\n")
}

func writeInitial(b *strings.Builder, st State, refs References) {
	b.WriteString("INITIAL DESIGN (BASE SAREE SETUP, DO NOT OVERDESIGN):\n")
	writeRegionLines(b, st, refs, map[Region]string{
		RegionBody:   "BODY (main central area)",
		RegionBorder: "BORDER (all four sides)",
		RegionPallu:  "PALLU (decorative end on the far right)",
	})
	b.WriteString("\n")
	writeSection(b, "IMPORTANT", []string{
		"Keep the design simple and elegant",
		"Traditional linear zari lines across the pallu",
		"Do NOT introduce motifs, heavy patterns, or modern elements beyond what is described",
	})
	b.WriteString("\n")
}

func writePreview(b *strings.Builder, st State, refs References) {
	b.WriteString("SPECIFIC DESIGN DETAILS:\n")
	writeRegionLines(b, st, refs, map[Region]string{
		RegionBody:   "BODY (main central area, about 70% of the saree)",
		RegionBorder: "BORDER (all four edges, running the full length)",
		RegionPallu:  "PALLU (decorative end section on the far right, about 15% of the length)",
	})
	b.WriteString("- ZARI WORK: " + zariPhrase(st.Zari) + " throughout\n")

	var refLines []string
	for _, r := range referenceOrder {
		if refs.Has(r) {
			refLines = append(refLines, fmt.Sprintf("Reference the provided %s image for the %s", referenceNoun(r), regionPlacement(r)))
		}
	}
	for _, line := range refLines {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")

	writeSection(b, "MAINTAIN CONSISTENCY", []string{
		"Keep the exact " + SareeAspectRatio + " horizontal aspect ratio",
		"Body patterns tile and repeat naturally across the main area",
		"Border patterns run continuously along the edges",
		"Pallu design is prominently featured on the right end",
		"Traditional Kanjeevaram silk texture and sheen",
		"Professional product photography quality",
	})
	b.WriteString("\n")
}

func writeFinal(b *strings.Builder, st State, refs References) {
	b.WriteString("FINAL MASTERPIECE SPECIFICATIONS:\n")
	writeRegionLines(b, st, refs, map[Region]string{
		RegionBody:   "BODY (main central area)",
		RegionBorder: "BORDER (edge detailing)",
		RegionPallu:  "PALLU (decorative end)",
	})
	b.WriteString("- ZARI WORK: " + zariPhrase(st.Zari) + " with premium shine\n")
	for _, r := range referenceOrder {
		if refs.Has(r) {
			b.WriteString(fmt.Sprintf("- IMPORTANT: Use the provided %s image as the exact design for the %s\n", referenceNoun(r), regionPlacement(r)))
		}
	}
	b.WriteString("\n")

	writeSection(b, "MAXIMUM QUALITY REQUIREMENTS", []string{
		"Ultra high-resolution professional product photography",
		"Perfect " + SareeAspectRatio + " horizontal aspect ratio",
		"Studio lighting highlighting silk texture and sheen",
		"Rich color depth and fabric detail",
		"Crisp, magazine-quality final image",
		"Showcase the intricate weave and zari work",
		"Perfect flat lay presentation",
	})

	var integration []string
	if p := strings.TrimSpace(st.Body.Pattern); p != "" {
		integration = append(integration, "Body features "+p+" pattern tiled across the main area")
	}
	if p := strings.TrimSpace(st.Border.Pattern); p != "" {
		integration = append(integration, "Border showcases "+p+" running continuously along the edges")
	}
	if p := strings.TrimSpace(st.Pallu.Pattern); p != "" {
		integration = append(integration, "Pallu displays "+p+" as the grand centerpiece on the right end")
	}
	writeSection(b, "DESIGN INTEGRATION", integration)
	b.WriteString("\n")
}

func writeExactColors(b *strings.Builder, st State) {
	b.WriteString("EXACT COLORS (HEX):\n")
	b.WriteString("- BODY: " + hexOrUnset(st.Body.Color) + "\n")
	b.WriteString("- BORDER: " + hexOrUnset(st.Border.Color) + "\n")
	b.WriteString("- PALLU: " + hexOrUnset(st.Pallu.Color) + "\n")
	b.WriteString("- ZARI THREAD: " + string(st.Zari) + "\n\n")
}

func writeRegionLines(b *strings.Builder, st State, refs References, labels map[Region]string) {
	for _, r := range Regions() {
		cfg := st.Region(r)
		line := DescribeRegion(r, cfg, refs.Has(r), st.Zari)
		if attrs := regionAttributes(r, cfg); attrs != "" {
			line += "; " + attrs
		}
		b.WriteString("- " + labels[r] + ": " + line + "\n")
	}
}

func regionAttributes(r Region, cfg RegionConfig) string {
	var attrs []string
	if c := strings.TrimSpace(cfg.Category); c != "" {
		attrs = append(attrs, c+" category")
	}
	if r == RegionBorder && cfg.SizeInches > 0 {
		attrs = append(attrs, fmt.Sprintf("approximately %d inches wide", cfg.SizeInches))
	}
	if r != RegionBorder && strings.TrimSpace(cfg.ZariLevel) != "" {
		attrs = append(attrs, cfg.ZariLevel+" zari level")
	}
	return strings.Join(attrs, ", ")
}

// referenceOrder is the order reference images are attached to a request.
var referenceOrder = []Region{RegionBorder, RegionBody, RegionPallu}

// ReferenceOrder returns the fixed order of reference image parts.
func ReferenceOrder() []Region {
	return append([]Region(nil), referenceOrder...)
}

func referenceNoun(r Region) string {
	if r == RegionPallu {
		return "pallu design"
	}
	return string(r) + " pattern"
}

func regionPlacement(r Region) string {
	switch r {
	case RegionBody:
		return "main fabric area"
	case RegionBorder:
		return "edge designs"
	default:
		return "decorative end section"
	}
}

func colorPhrase(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return "an undecided"
	}
	return color
}

func hexOrUnset(color string) string {
	if c := strings.TrimSpace(color); c != "" {
		return c
	}
	return "(not chosen)"
}

func zariPhrase(z Zari) string {
	if z == "" {
		return "no zari"
	}
	return string(z) + " zari threads"
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
}
