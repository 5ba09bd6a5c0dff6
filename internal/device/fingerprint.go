package device

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/desertthunder/reelgate/internal/repositories"
	"github.com/desertthunder/reelgate/internal/shared"
)

// KeyDeviceID is the storage slot holding the install ID.
const KeyDeviceID = "deviceId"

var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// Fingerprinter derives a stable device hash.
type Fingerprinter struct {
	kv       repositories.KeyValueStore
	hostname func() (string, error)

	mu    sync.Mutex
	value string
}

// NewFingerprinter creates a [Fingerprinter] that persists its install ID in kv.
func NewFingerprinter(kv repositories.KeyValueStore) *Fingerprinter {
	return &Fingerprinter{kv: kv, hostname: os.Hostname}
}

// Fingerprint returns the 32 hex character device hash.
// A successful result is cached for the process; a storage failure is retried on the next call.
func (f *Fingerprinter) Fingerprint() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.value != "" {
		return f.value, nil
	}

	id, err := f.installID()
	if err != nil {
		return "", err
	}
	f.value = f.hash(id)
	return f.value, nil
}

func (f *Fingerprinter) installID() (string, error) {
	id, ok, err := f.kv.Get(KeyDeviceID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}

	id = shared.GenerateID()
	if err := f.kv.Set(KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (f *Fingerprinter) hash(installID string) string {
	host, _ := f.hostname()
	parts := []string{installID, runtime.GOOS, runtime.GOARCH, host, machineID()}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

func machineID() string {
	for _, p := range machineIDPaths {
		if b, err := os.ReadFile(p); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return ""
}
