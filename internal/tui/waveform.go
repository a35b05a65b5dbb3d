package tui

import "strings"

// waveRunes maps a normalized level to a vertical bar glyph, quietest
// first.
var waveRunes = []rune(" ▁▂▃▄▅▆▇█")

// waveform is the scrolling display window of recent amplitude samples,
// bounded by the terminal width.
type waveform struct {
	samples []float64
	width   int
}

func newWaveform(width int) *waveform {
	if width <= 0 {
		width = 60
	}
	return &waveform{width: width}
}

func (w *waveform) setWidth(width int) {
	if width <= 0 {
		return
	}
	w.width = width
	w.trim()
}

// push appends one sample, evicting the oldest once the window is full.
func (w *waveform) push(level float64) {
	w.samples = append(w.samples, clamp01(level))
	w.trim()
}

func (w *waveform) trim() {
	if len(w.samples) > w.width {
		w.samples = w.samples[len(w.samples)-w.width:]
	}
}

func (w *waveform) reset() {
	w.samples = w.samples[:0]
}

// latest is the newest sample, used for the volume meter.
func (w *waveform) latest() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return w.samples[len(w.samples)-1]
}

// render draws the window as one line of bar glyphs, newest at the right
// edge.
func (w *waveform) render() string {
	var b strings.Builder
	pad := w.width - len(w.samples)
	for i := 0; i < pad; i++ {
		b.WriteRune(' ')
	}
	for _, level := range w.samples {
		idx := int(level * float64(len(waveRunes)-1))
		if idx >= len(waveRunes) {
			idx = len(waveRunes) - 1
		}
		b.WriteRune(waveRunes[idx])
	}
	return b.String()
}

// renderMeter draws a horizontal volume bar for the current level.
func renderMeter(level float64, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(clamp01(level) * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat(" ", width-filled) + "]"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
