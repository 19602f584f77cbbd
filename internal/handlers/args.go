package handlers

import (
	"errors"
	"strconv"
	"strings"

	"saree-studio/internal/design"
	"saree-studio/internal/studio"
)

const callbackPrefix = "sd"

var errUsage = errors.New("usage")

// parseColors reads "/colors <body> <border> <pallu>".
func parseColors(args string) (studio.Colors, error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return studio.Colors{}, errUsage
	}
	return studio.Colors{Body: fields[0], Border: fields[1], Pallu: fields[2]}, nil
}

// splitRegion reads "<region> rest...".
func splitRegion(args string) (design.Region, string, error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	if head == "" {
		return "", "", errUsage
	}
	r, err := design.ParseRegion(head)
	if err != nil {
		return "", "", err
	}
	return r, strings.TrimSpace(rest), nil
}

// parseCaption reads a motif upload caption: "<region> [pattern name]".
func parseCaption(caption string) (design.Region, string, bool) {
	r, rest, err := splitRegion(caption)
	if err != nil {
		return "", "", false
	}
	return r, rest, true
}

// albumRegions assigns n album photos to regions in the order the caption
// names them. Unnamed slots take the remaining regions in border, body,
// pallu order. At most three photos get a region.
func albumRegions(caption string, n int) []design.Region {
	seen := make(map[design.Region]bool, 3)
	var out []design.Region
	for _, word := range strings.FieldsFunc(caption, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '\n'
	}) {
		r, err := design.ParseRegion(word)
		if err != nil || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	for _, r := range design.ReferenceOrder() {
		if !seen[r] {
			out = append(out, r)
		}
	}
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// callback data is "sd:<owner>:<action>[:args...]".
func cb(ownerID int64, parts ...string) string {
	return callbackPrefix + ":" + strconv.FormatInt(ownerID, 10) + ":" + strings.Join(parts, ":")
}

func parseCallback(data string) (ownerID int64, action string, args []string, ok bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return 0, "", nil, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || parts[2] == "" {
		return 0, "", nil, false
	}
	return ownerID, parts[2], parts[3:], true
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
