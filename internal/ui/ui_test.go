package ui

import (
	"strings"
	"testing"

	"github.com/desertthunder/reelgate/internal/app"
	"github.com/desertthunder/reelgate/internal/models"
	"github.com/desertthunder/reelgate/internal/shared"
	"github.com/desertthunder/reelgate/internal/tasks"
)

func TestRenderState(t *testing.T) {
	p := Default()

	tests := []struct {
		name  string
		state app.State
		want  []string
	}{
		{"initializing", app.State{Initializing: true}, []string{"initializing"}},
		{"ready", app.State{Ready: true, Via: "minted"}, []string{"ready", "minted"}},
		{"error", app.State{Error: &shared.APIError{StatusCode: 503, Message: "down", Details: "retry"}}, []string{"down", "[503]", "retry"}},
		{"zero", app.State{}, []string{"not initialized"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.RenderState(tt.state)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("RenderState() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestRenderSession(t *testing.T) {
	p := Default()

	if got := p.RenderSession(nil, nil); !strings.Contains(got, "no active session") {
		t.Errorf("nil credential = %q", got)
	}

	c := &models.Credential{Kind: models.User, Token: "abcdefghijklmnop"}
	got := p.RenderSession(c, &models.UserProfile{UserID: 3, Username: "ana", Balance: 1.5})
	if strings.Contains(got, "abcdefghijklmnop") {
		t.Errorf("token leaked in %q", got)
	}
	for _, w := range []string{"user", "ana", "#3", "1.50"} {
		if !strings.Contains(got, w) {
			t.Errorf("RenderSession() = %q, missing %q", got, w)
		}
	}

	guest := p.RenderSession(&models.Credential{Kind: models.Guest, Token: "g1"}, nil)
	if !strings.Contains(guest, "guest") || !strings.Contains(guest, "****") {
		t.Errorf("guest session = %q", guest)
	}
}

func TestPainter(t *testing.T) {
	var p Painter = Default()

	for _, got := range []string{p.On(" user ", userBadge), p.As("****", tokenColor)} {
		if strings.TrimSpace(got) == "" {
			t.Errorf("painter dropped the text: %q", got)
		}
	}

	badge := Default().RenderSession(&models.Credential{Kind: models.Guest, Token: "g1"}, nil)
	if !strings.Contains(badge, " guest ") {
		t.Errorf("guest badge missing padding: %q", badge)
	}
}

func TestRenderProgress(t *testing.T) {
	got := Default().RenderProgress(tasks.ProgressUpdate{Phase: tasks.FetchDetails, Message: "[1/2] ✓ Heat"})
	if !strings.Contains(got, "fetch_details") || !strings.Contains(got, "Heat") {
		t.Errorf("RenderProgress() = %q", got)
	}
}
