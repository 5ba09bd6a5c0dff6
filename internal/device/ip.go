package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/reelgate/internal/shared"
)

// Loopback is returned without any lookup when the backend itself runs on this machine.
const Loopback = "127.0.0.1"

var ipv4Pattern = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`)

// IPDetector resolves the client's public IPv4 address.
type IPDetector struct {
	services []shared.IPService
	timeout  time.Duration
	fallback string
	loopback bool
	client   *http.Client
	logger   *log.Logger
}

// IPDetectorOpts configures an [IPDetector].
type IPDetectorOpts struct {
	Config     shared.IPConfig
	BackendURL string // enables the loopback shortcut when it points at localhost
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewIPDetector creates an [IPDetector]
func NewIPDetector(opts IPDetectorOpts) *IPDetector {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	fallback := opts.Config.Fallback
	if fallback == "" {
		fallback = "0.0.0.0"
	}

	return &IPDetector{
		services: opts.Config.Services,
		timeout:  opts.Config.Timeout(),
		fallback: fallback,
		loopback: opts.Config.LoopbackShortcut && isLoopbackURL(opts.BackendURL),
		client:   opts.HTTPClient,
		logger:   shared.WithLogger(opts.Logger, "component", "ip"),
	}
}

// ClientIP returns the first valid answer from the configured services, or the fallback.
// It never fails.
func (d *IPDetector) ClientIP(ctx context.Context) string {
	if d.loopback {
		return Loopback
	}

	for _, svc := range d.services {
		ip, err := d.lookup(ctx, svc)
		if err != nil {
			d.logger.Warn("IP service failed", "url", svc.URL, "error", err)
			continue
		}
		if ip != "" && ipv4Pattern.MatchString(ip) {
			return ip
		}
		d.logger.Warn("IP service returned an unusable answer", "url", svc.URL, "answer", ip)
	}

	return d.fallback
}

func (d *IPDetector) lookup(ctx context.Context, svc shared.IPService) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if svc.Format == "text" {
		return strings.TrimSpace(string(body)), nil
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return strings.TrimSpace(payload.IP), nil
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
