package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	// Members in tension, compression, or slack.
	TensionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5566"))

	CompressionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#55aaff"))

	SlackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	StatusOK = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusFail = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
)

// Separator renders a muted horizontal rule.
func Separator(width int) string {
	if width < 1 {
		width = 1
	}
	return Subtle.Render(strings.Repeat("─", width))
}

// ResidualSparkline compresses a residual trace into one line of
// block characters, log-scaled so early large residuals do not drown
// the tail.
func ResidualSparkline(trace []float64, width int) string {
	if len(trace) == 0 || width < 1 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	logs := make([]float64, len(trace))
	min, max := 0.0, 0.0
	for i, v := range trace {
		l := -12.0
		if v > 1e-12 {
			l = math.Log10(v)
		}
		logs[i] = l
		if i == 0 || l < min {
			min = l
		}
		if i == 0 || l > max {
			max = l
		}
	}
	rng := max - min
	if rng == 0 {
		rng = 1
	}

	step := len(logs) / width
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < width && i*step < len(logs); i++ {
		norm := (logs[i*step] - min) / rng
		idx := int(norm * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		b.WriteRune(chars[idx])
	}
	return Subtle.Render(b.String())
}
