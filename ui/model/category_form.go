package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soocke/debuff-tracker-go/config"
)

// Field is one row of the category settings form.
type Field struct{ ID, Label string }

// CategoryFields lists the editable category settings in form order.
var CategoryFields = []Field{
	{"displayMode", "Display Mode (default/invert/opacity)"},
	{"inactiveOpacity", "Inactive Opacity (0-1)"},
	{"iconSize", "Icon Size Px"},
	{"layout", "Layout (vertical/horizontal)"},
	{"cycleIntervalMs", "Cycle Interval Ms"},
	{"matchThreshold", "Match Threshold (0-1]"},
	{"anchorEnabled", "Anchor Detection (true/false)"},
	{"anchorImage", "Anchor Image"},
	{"selected", "Markers (comma separated, in order)"},
}

// FieldValues renders c as form text keyed by field id.
func FieldValues(c config.Category) map[string]string {
	return map[string]string{
		"displayMode":     c.DisplayMode,
		"inactiveOpacity": fmt.Sprintf("%.2f", c.InactiveOpacity),
		"iconSize":        strconv.Itoa(c.IconSize),
		"layout":          c.Layout,
		"cycleIntervalMs": strconv.Itoa(c.CycleIntervalMS),
		"matchThreshold":  fmt.Sprintf("%.3f", c.MatchThreshold),
		"anchorEnabled":   strconv.FormatBool(c.AnchorDetectionEnabled),
		"anchorImage":     c.AnchorImage,
		"selected":        strings.Join(c.SelectedDebuffs, ", "),
	}
}

// ApplyFields parses raw form values onto a copy of c. Unparseable or out of
// range values keep the previous setting and are listed in rejected.
func ApplyFields(c config.Category, raw map[string]string) (out config.Category, rejected []string) {
	out = c
	out.SelectedDebuffs = append([]string(nil), c.SelectedDebuffs...)
	reject := func(id string) { rejected = append(rejected, id) }

	if s, ok := raw["displayMode"]; ok {
		switch m := strings.ToLower(s); m {
		case config.DisplayDefault, config.DisplayInvert, config.DisplayOpacity:
			out.DisplayMode = m
		default:
			reject("displayMode")
		}
	}
	if s, ok := raw["layout"]; ok {
		switch l := strings.ToLower(s); l {
		case config.LayoutVertical, config.LayoutHorizontal:
			out.Layout = l
		default:
			reject("layout")
		}
	}
	if s, ok := raw["inactiveOpacity"]; ok {
		if f, ok := parseFloatField(s); ok && f >= 0 && f <= 1 {
			out.InactiveOpacity = f
		} else {
			reject("inactiveOpacity")
		}
	}
	if s, ok := raw["matchThreshold"]; ok {
		if f, ok := parseFloatField(s); ok && f > 0 && f <= 1 {
			out.MatchThreshold = f
		} else {
			reject("matchThreshold")
		}
	}
	if s, ok := raw["iconSize"]; ok {
		if i, ok := parseIntField(s); ok && i > 0 {
			out.IconSize = i
		} else {
			reject("iconSize")
		}
	}
	if s, ok := raw["cycleIntervalMs"]; ok {
		if i, ok := parseIntField(s); ok && i > 0 {
			out.CycleIntervalMS = i
		} else {
			reject("cycleIntervalMs")
		}
	}
	if s, ok := raw["anchorEnabled"]; ok {
		if b, ok := parseBoolLoose(s); ok {
			out.AnchorDetectionEnabled = b
		} else {
			reject("anchorEnabled")
		}
	}
	if s, ok := raw["anchorImage"]; ok {
		out.AnchorImage = s
	}
	if s, ok := raw["selected"]; ok {
		out.SelectedDebuffs = splitList(s)
	}
	return out, rejected
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloatField(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on", "t":
		return true, true
	case "false", "0", "no", "n", "off", "f":
		return false, true
	default:
		return false, false
	}
}
