// package services implements the reelgate client components on top of the request [Gateway].
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/desertthunder/reelgate/internal/device"
	"github.com/desertthunder/reelgate/internal/models"
)

// Refresher mints a guest credential. [GuestIssuer] implements it; the [Gateway] calls it after a 401.
type Refresher interface {
	IssueGuestToken(ctx context.Context, forceRefresh bool) (*models.Credential, error)
}

// DeviceContext supplies the fingerprint, IP and user agent triple. [device.Collector] implements it.
type DeviceContext interface {
	Collect(ctx context.Context) (device.Context, error)
}

// Route names a view the UI layer should show next.
type Route string

const (
	RouteHome  Route = "/"
	RouteLogin Route = "/login"
)

// Navigator receives navigation signals.
type Navigator interface {
	Navigate(Route)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(r Route) { f(r) }

type noopNavigator struct{}

func (noopNavigator) Navigate(Route) {}

// PasswordEncoder transforms a password before it is sent.
type PasswordEncoder func(string) string

// SHA256Hex is the backend's expected wire form: upper-case hex SHA-256.
// It hides the plain text from casual inspection only and is not a security boundary.
func SHA256Hex(password string) string {
	sum := sha256.Sum256([]byte(password))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// probeQuery is the cheapest authenticated read the backend offers, used to check a token is still accepted.
func probeQuery() url.Values {
	return models.MovieListParams{Page: 1, PageSize: 1}.Values()
}
