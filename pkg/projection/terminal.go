package projection

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-toolcall/pkg/toolcall"
)

var (
	mutedColor   = lipgloss.Color("#6B7280")
	pendingColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	pendingStyle = lipgloss.NewStyle().
			Foreground(pendingColor).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

const swatchWidth = 9

// Terminal draws v for a terminal.
func Terminal(v View) string {
	switch v.Kind {
	case KindNotStarted, KindPrompt:
		return mutedStyle.Render(v.Message)
	case KindPalette:
		if v.Palette != nil {
			return terminalPalette(v.Palette)
		}
	case KindEnquiry:
		if v.Enquiry != nil {
			return terminalEnquiry(v.Enquiry)
		}
	}
	return ""
}

func terminalPalette(p *PaletteView) string {
	blocks := make([]string, 0, len(p.Swatches))
	for _, s := range p.Swatches {
		block := lipgloss.NewStyle().
			Background(lipgloss.Color(s.Hex)).
			Width(swatchWidth).
			Height(3).
			Render("")
		label := mutedStyle.Width(swatchWidth).Align(lipgloss.Center).Render(s.Hex)
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Center, block, label))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Palette: %s", p.Theme)),
		lipgloss.JoinHorizontal(lipgloss.Top, blocks...),
		"",
		mutedStyle.Render(p.Record),
	)
}

func terminalEnquiry(e *EnquiryView) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Q: " + e.Question))
	b.WriteString("\n")

	switch e.Status {
	case toolcall.StatusPending:
		b.WriteString(pendingStyle.Render("Waiting for an answer..."))
	case toolcall.StatusFailed:
		b.WriteString(errorStyle.Render("The enquiry failed: " + e.Error))
	default:
		b.WriteString(e.Answer)
	}

	return cardStyle.Render(b.String())
}
