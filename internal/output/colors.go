package output

import "github.com/fatih/color"

// Palette colors the text report. fatih/color disables itself when stdout is not a
// terminal or NO_COLOR is set, so the same calls produce plain text in pipes.
type Palette struct {
	Heading *color.Color
	Pass    *color.Color
	Fail    *color.Color
	Warn    *color.Color
}

// DefaultPalette returns the palette PrintReport uses.
func DefaultPalette() *Palette {
	return &Palette{
		Heading: color.New(color.FgCyan, color.Bold),
		Pass:    color.New(color.FgGreen),
		Fail:    color.New(color.FgRed, color.Bold),
		Warn:    color.New(color.FgYellow),
	}
}

// PlainPalette returns a palette with every color disabled.
func PlainPalette() *Palette {
	p := DefaultPalette()
	p.Heading.DisableColor()
	p.Pass.DisableColor()
	p.Fail.DisableColor()
	p.Warn.DisableColor()
	return p
}

func (p *Palette) threshold(passed bool, msg string) string {
	if passed {
		return p.Pass.Sprint(msg)
	}
	return p.Fail.Sprint(msg)
}

// count renders n in warn color when it is non-zero.
func (p *Palette) count(n int64) string {
	if n == 0 {
		return "0"
	}
	return p.Warn.Sprint(n)
}
