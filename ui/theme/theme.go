package theme

// Palette and ttk styles for the control window and the category overlays.

import (
	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Light palette.
const (
	ColorBg        = "#f7f9fb"
	ColorSurface   = "#ffffff"
	ColorBorder    = "#d0d7de"
	ColorPrimary   = "#2563eb"
	ColorDanger    = "#dc2626"
	ColorAccent    = "#10b981"
	ColorText      = "#1e293b"
	ColorTextMuted = "#64748b"
)

// Overlay colors. OverlayKey is made transparent on platforms that support
// -transparentcolor, so panels show only their icons.
const (
	OverlayKey    = "#008080"
	OverlayBorder = "#ffffff"
	RegionSearch  = "#22c55e"
	RegionAnchor  = "#ef4444"
)

// PlaceholderRGB is the fill of generated icons for markers without art.
var PlaceholderRGB = [3]uint8{0x64, 0x74, 0x8b}

// PaletteSnapshot represents resolved colors for the active mode.
type PaletteSnapshot struct {
	AppBg     string
	Surface   string
	Border    string
	Primary   string
	Danger    string
	Accent    string
	Text      string
	TextMuted string
}

var darkPalette = PaletteSnapshot{
	AppBg:     "#0f172a",
	Surface:   "#1e293b",
	Border:    "#334155",
	Primary:   "#3b82f6",
	Danger:    "#ef4444",
	Accent:    "#10b981",
	Text:      "#f1f5f9",
	TextMuted: "#94a3b8",
}

var lightPalette = PaletteSnapshot{
	AppBg:     ColorBg,
	Surface:   ColorSurface,
	Border:    ColorBorder,
	Primary:   ColorPrimary,
	Danger:    ColorDanger,
	Accent:    ColorAccent,
	Text:      ColorText,
	TextMuted: ColorTextMuted,
}

// CurrentPalette returns colors for the current dark/light mode.
func CurrentPalette() PaletteSnapshot {
	if darkMode {
		return darkPalette
	}
	return lightPalette
}

const (
	StylePrimaryButton = "primary.TButton"
	StyleDangerButton  = "danger.TButton"
	StyleCategoryLabel = "category.TLabel"
	StyleMutedLabel    = "muted.TLabel"
)

var darkMode bool

// InitStyles (re)applies styles for the current mode.
func InitStyles() { applyStyles(CurrentPalette()) }

// SetDark switches mode and reapplies styles.
func SetDark(dark bool) bool {
	darkMode = dark
	InitStyles()
	return darkMode
}

// ToggleDark flips dark mode and reapplies styles. Returns new mode value.
func ToggleDark() bool { return SetDark(!darkMode) }

// IsDark reports current mode.
func IsDark() bool { return darkMode }

func applyStyles(p PaletteSnapshot) {
	_ = ActivateTheme("azure light")
	App.Configure(Background(p.AppBg))
	StyleConfigure(StylePrimaryButton, Background(p.Primary), Foreground("white"), Padding("4p 3p"), Borderwidth(1), Relief("ridge"))
	StyleConfigure(StyleDangerButton, Background(p.Danger), Foreground("white"), Padding("4p 3p"), Borderwidth(1), Relief("ridge"))
	StyleConfigure(StyleCategoryLabel, Foreground(p.Text), Background(p.Surface), Padding("2p 1p"))
	StyleConfigure(StyleMutedLabel, Foreground(p.TextMuted), Background(p.AppBg), Padding("2p 1p"))
}
