package device

import (
	"context"
	"fmt"
	"runtime"
)

// Collector assembles a [Context] from a [Fingerprinter] and an [IPDetector].
type Collector struct {
	fingerprinter *Fingerprinter
	ip            *IPDetector
	userAgent     string
}

// NewCollector creates a [Collector]. An empty userAgent defaults to "reelgate/0.1.0";
// the GOOS and GOARCH are always appended, as in "reelgate/0.1.0 (linux; amd64)".
func NewCollector(fp *Fingerprinter, ip *IPDetector, userAgent string) *Collector {
	if userAgent == "" {
		userAgent = "reelgate/0.1.0"
	}
	return &Collector{
		fingerprinter: fp,
		ip:            ip,
		userAgent:     fmt.Sprintf("%s (%s; %s)", userAgent, runtime.GOOS, runtime.GOARCH),
	}
}

// UserAgent returns the value sent as both the User-Agent header and the userAgent field.
func (c *Collector) UserAgent() string { return c.userAgent }

// Collect gathers the fingerprint, client IP and user agent.
func (c *Collector) Collect(ctx context.Context) (Context, error) {
	fp, err := c.fingerprinter.Fingerprint()
	if err != nil {
		return Context{}, fmt.Errorf("failed to compute fingerprint: %w", err)
	}

	return Context{
		Fingerprint: fp,
		IP:          c.ip.ClientIP(ctx),
		UserAgent:   c.userAgent,
	}, nil
}
