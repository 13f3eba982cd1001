package render

// Material Design icon names used by the itinerary feed, mapped to glyphs
// that render without an icon font.
var glyphs = map[string]string{
	"mdi:airplane":              "✈",
	"mdi:airplane-takeoff":      "✈",
	"mdi:bed":                   "🛏",
	"mdi:car":                   "🚗",
	"mdi:train":                 "🚆",
	"mdi:bus":                   "🚌",
	"mdi:ferry":                 "⛴",
	"mdi:hiking":                "🥾",
	"mdi:silverware-fork-knife": "🍴",
	"mdi:notebook-outline":      "📓",
	"mdi:calendar-star":         "★",
	"mdi:map-marker-path":       "📍",
	"mdi:format-list-bulleted":  "☰",
	"mdi:cash-multiple":         "$",
}

// Glyph returns the display glyph for an mdi icon name, or a bullet.
func Glyph(icon string) string {
	if g, ok := glyphs[icon]; ok {
		return g
	}
	return "•"
}
