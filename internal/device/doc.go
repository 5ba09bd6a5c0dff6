// Package device gathers the anti-fraud context sent with guest issuance and login:
// a stable device fingerprint, the best-effort public IPv4 address, and the user agent.
//
// # Fingerprint
//
// [Fingerprinter] hashes host characteristics together with an install ID that is minted once
// (a v4 UUID) and kept in durable storage, so the value is stable across runs on one machine.
//
// # Client IP
//
// [IPDetector] queries lookup services in priority order with a per-call timeout. The first
// non-empty IPv4-looking answer wins; when every service fails the configured sentinel is used.
package device

// Context is the triple attached to guest issuance and login requests.
type Context struct {
	Fingerprint string
	IP          string
	UserAgent   string
}
