package styles

// Nerd Font glyphs for the notification icon names.
var icons = map[string]string{
	"info-circle":          "",
	"check-circle":         "",
	"exclamation-triangle": "",
	"exclamation-octagon":  "",
	"x-circle":             "",
	"bell":                 "",
}

// Icon returns the glyph for a notification icon name, or the name itself
// when no glyph is known.
func Icon(name string) string {
	if g, ok := icons[name]; ok {
		return g
	}
	return name
}
