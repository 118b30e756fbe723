package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme maps event categories and MIDI channels to palette colors.
type Theme struct {
	Palette *Palette
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{Palette: palette}
}

// Load returns a theme for the GPL file at path, or the built-in palette
// when path is empty.
func Load(path string) (*Theme, error) {
	if path == "" {
		return New(nil), nil
	}
	p, err := LoadGPL(path)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted  = 0.2
	RoleMeta   = 0.35
	RoleFG     = 0.6
	RoleAccent = 0.8
	RoleWarn   = 0.9
	RoleSysex  = 1.0
)

func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Meta() lipgloss.Color    { return t.Color(RoleMeta) }
func (t *Theme) FG() lipgloss.Color      { return t.Color(RoleFG) }
func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarn) }
func (t *Theme) Sysex() lipgloss.Color   { return t.Color(RoleSysex) }

// Channel spreads the 16 MIDI channels over the bright end of the palette.
func (t *Theme) Channel(ch uint8) lipgloss.Color {
	return t.Color(0.3 + 0.7*float64(ch&0x0F)/15)
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
