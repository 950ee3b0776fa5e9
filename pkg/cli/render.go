package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/biovault/verify/pkg/biometric"
)

// Theme defines the color scheme for text output.
type Theme struct {
	Primary lipgloss.Color // Accent color
	Success lipgloss.Color
	Failure lipgloss.Color
	Dim     lipgloss.Color // Labels and secondary text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Success: lipgloss.Color("#00ff9f"),
	Failure: lipgloss.Color("#ff5f5f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:   lipgloss.NewStyle().Foreground(t.Dim).Width(18),
		Success: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Failure: lipgloss.NewStyle().Bold(true).Foreground(t.Failure),
		Border:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Result is a verification outcome together with what produced it.
type Result struct {
	Modality biometric.Modality
	Refs     [2]string
	Verdict  biometric.Verdict
	Elapsed  time.Duration
}

// RenderResult renders r as a bordered summary box.
func (s Styles) RenderResult(r Result) string {
	v := r.Verdict

	var status string
	switch {
	case v.Failed():
		status = s.Failure.Render("✗ " + string(v.Error))
	case v.Verified:
		status = s.Success.Render("✓ same person")
	default:
		status = s.Failure.Render("✗ different person")
	}

	lines := []string{
		s.Title.Render(r.Modality.String()+" verification") + "  " + status,
		"",
		s.row("first", r.Refs[0]),
		s.row("second", r.Refs[1]),
	}
	if v.Confidence != nil {
		lines = append(lines, s.row("confidence", fmt.Sprintf("%.3f", *v.Confidence)))
	}
	if v.Distance != nil && v.Threshold != nil {
		lines = append(lines, s.row("distance", fmt.Sprintf("%.4f (threshold %.4f)", *v.Distance, *v.Threshold)))
	}
	if v.SpeakerCount != nil {
		lines = append(lines, s.row("speakers", fmt.Sprint(*v.SpeakerCount)))
	}
	if v.FirstLastMatch != nil {
		lines = append(lines, s.row("first/last match", fmt.Sprint(*v.FirstLastMatch)))
	}
	if v.Detail != "" {
		lines = append(lines, s.row("detail", v.Detail))
	}
	if r.Elapsed > 0 {
		lines = append(lines, s.Help.Render("took "+FormatDuration(r.Elapsed)))
	}
	return s.Border.Render(strings.Join(lines, "\n"))
}

func (s Styles) row(label, value string) string {
	return s.Label.Render(label) + value
}
