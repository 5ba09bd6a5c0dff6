package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/reelgate/internal/app"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
	"github.com/desertthunder/reelgate/internal/tasks"
)

const (
	guestBadge lipgloss.Color = "#626262"
	userBadge  lipgloss.Color = "#7D56F4"
	tokenColor lipgloss.Color = "#FFA500"
)

// RenderState describes a bootstrap state in one line.
func (p *Palette) RenderState(s app.State) string {
	switch {
	case s.Initializing:
		return p.Warn("… initializing session")
	case s.Ready:
		return p.OK("✓ ready") + p.Help(fmt.Sprintf(" (%s)", s.Via))
	case s.Error != nil:
		return p.RenderError(s.Error)
	default:
		return p.Help("not initialized")
	}
}

// RenderError formats a normalized error with its status code and details.
func (p *Palette) RenderError(e *shared.APIError) string {
	var b strings.Builder
	b.WriteString(p.Err("✗ " + e.Message))
	if e.StatusCode != 0 {
		b.WriteString(p.Help(fmt.Sprintf(" [%d]", e.StatusCode)))
	}
	if e.Details != "" {
		b.WriteString("\n  " + p.Help(e.Details))
	}
	return b.String()
}

// RenderSession describes the active credential. Tokens are masked.
func (p *Palette) RenderSession(c *models.Credential, profile *models.UserProfile) string {
	if c == nil {
		return p.Warn("no active session")
	}

	badge := p.On(" "+c.Kind.String()+" ", guestBadge)
	if c.Kind == models.User {
		badge = p.On(" "+c.Kind.String()+" ", userBadge)
	}
	line := fmt.Sprintf("%s %s", badge, p.As(shared.MaskToken(c.Token), tokenColor))
	if c.Kind == models.User && profile != nil {
		line += p.Help(fmt.Sprintf(" %s (#%d, balance %.2f)", profile.Username, profile.UserID, profile.Balance))
	}
	return line
}

// RenderProgress formats a task progress update.
func (p *Palette) RenderProgress(u tasks.ProgressUpdate) string {
	return p.Help(fmt.Sprintf("[%s] ", u.Phase)) + u.Message
}
