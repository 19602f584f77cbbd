package handlers

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"saree-studio/internal/design"
	"saree-studio/internal/render"
	"saree-studio/internal/telegram"
)

func stateText(st design.State, hasPreview, hasFinal bool) string {
	var b strings.Builder
	b.WriteString("🥻 Saree Studio\n\n")
	b.WriteString(fmt.Sprintf("Zari: %s\n", st.Zari))

	for _, r := range design.Regions() {
		cfg := st.Region(r)
		color := "(not chosen)"
		if cfg.Color != "" {
			color = design.ColorName(cfg.Color)
			if color != cfg.Color {
				color += " " + cfg.Color
			}
		}

		b.WriteString(fmt.Sprintf("\n%s: %s\n", r.Title(), color))
		details := []string{cfg.Category}
		switch r {
		case design.RegionBorder:
			if cfg.Size != "" {
				details = append(details, fmt.Sprintf("%s (%d\")", cfg.Size, cfg.SizeInches))
			}
		default:
			if cfg.ZariLevel != "" {
				details = append(details, cfg.ZariLevel+" zari")
			}
		}
		b.WriteString("  " + strings.Join(details, ", ") + "\n")
		if cfg.HasDesign() {
			pattern := cfg.Pattern
			if pattern == "" {
				pattern = "custom motif"
			}
			b.WriteString("  Design: " + truncateLine(pattern, 60) + " ✅\n")
		} else if cfg.Pattern != "" {
			b.WriteString("  Pattern: " + truncateLine(cfg.Pattern, 60) + "\n")
		}
	}

	b.WriteString("\n")
	if missing := st.MissingColors(); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, r := range missing {
			names = append(names, string(r))
		}
		b.WriteString("🎨 Pick colors for: " + strings.Join(names, ", ") + "\n")
	} else if !hasPreview {
		b.WriteString("👀 Ready for a preview.\n")
	} else {
		b.WriteString("Preview: ✅\n")
	}
	if hasFinal {
		b.WriteString("Final: ✅\n")
	}

	return strings.TrimSpace(b.String())
}

func menuKeyboard(ownerID int64, st design.State, menu string, region design.Region) telegram.Keyboard {
	switch menu {
	case "zari":
		return zariKeyboard(ownerID, st)
	case "colors":
		return colorKeyboard(ownerID, st, region)
	default:
		return mainKeyboard(ownerID, st)
	}
}

func mainKeyboard(ownerID int64, st design.State) telegram.Keyboard {
	var colorRow []tgbotapi.InlineKeyboardButton
	for _, r := range design.Regions() {
		label := "🎨 " + r.Title()
		if st.Region(r).Color != "" {
			label = "✅ " + r.Title()
		}
		colorRow = append(colorRow, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "menu", "colors", string(r))))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		colorRow,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Zari: "+string(st.Zari), cb(ownerID, "menu", "zari")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("👀 Preview", cb(ownerID, "preview")),
			tgbotapi.NewInlineKeyboardButtonData("✨ Finalize", cb(ownerID, "finalize")),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
		},
	)
}

func zariKeyboard(ownerID int64, st design.State) telegram.Keyboard {
	var row []tgbotapi.InlineKeyboardButton
	for _, z := range design.ZariTypes() {
		label := string(z)
		if z == st.Zari {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "zari", string(z))))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", "main")),
		},
	)
}

func colorKeyboard(ownerID int64, st design.State, region design.Region) telegram.Keyboard {
	current := st.Region(region).Color

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range design.ColorPresets() {
		label := c.Name
		if strings.EqualFold(c.Value, current) {
			label = "✅ " + label
		}
		value := strings.TrimPrefix(c.Value, "#")
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "color", string(region), value)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", "main")),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// motifKeyboard is attached to each search result photo.
func motifKeyboard(ownerID int64, region design.Region, index int) telegram.Keyboard {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Use #%d for %s", index+1, region),
				cb(ownerID, "use", string(region), strconv.Itoa(index)),
			),
		},
	)
}

func artifactCaption(art render.Artifact) string {
	st := art.State
	title := "👀 Preview"
	if art.Stage == design.StageFinal {
		title = "✨ Final design"
	}
	return fmt.Sprintf("%s\nBody %s · Border %s · Pallu %s · %s zari",
		title,
		design.ColorName(st.Body.Color),
		design.ColorName(st.Border.Color),
		design.ColorName(st.Pallu.Color),
		st.Zari,
	)
}

const helpText = "🥻 Saree Studio\n\n" +
	"Design a Kanjeevaram silk saree and get a photorealistic preview.\n\n" +
	"/state - current design and menu\n" +
	"/zari <Gold|Silver|Copper>\n" +
	"/colors <body> <border> <pallu> - set all colors and preview\n" +
	"/color <region> <hex>\n" +
	"/category <region> <name>\n" +
	"/size <Small|Medium|Large|XLarge> - border width\n" +
	"/level <body|pallu> <Light|Medium|Heavy>\n" +
	"/pattern <region> <name>\n" +
	"/search <region> <keyword> - find motif designs\n" +
	"/preview - quick first impression\n" +
	"/finalize [note] - high quality final image\n" +
	"/reset - start over\n\n" +
	"Send a photo with caption \"<region> [pattern name]\" to use your own motif. " +
	"An album assigns photos to the regions named in its caption, in order."
