package device

import (
	"fmt"
	"strings"
	"time"
)

// DefaultStaleAfter is the staleness window used by the prune-on-read lifecycle.
const DefaultStaleAfter = 30 * time.Second

// Source identifies which ingestion path produced an update.
type Source string

// Update sources.
const (
	SourceTCP  Source = "tcp"
	SourceWeb  Source = "web"
	SourceMQTT Source = "mqtt"
)

// Record is the registry's entry for one device.
//
// A Record holds only value fields, so a plain assignment is a full copy.
type Record struct {
	// Name is the key supplied by the client. It is not validated and may be empty.
	Name string `json:"name"`

	// RSSI is the last reported signal strength in dBm.
	RSSI int `json:"rssi"`

	// LastSeen is the UTC time of the most recent accepted update.
	LastSeen time.Time `json:"last_seen"`

	// SourceIP is the peer host of the last submission.
	SourceIP string `json:"ip"`

	// Active is set on every accepted update and never cleared.
	Active bool `json:"active"`

	Source Source `json:"source"`
}

// Age returns how long ago the record was last refreshed, relative to now.
func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.LastSeen)
}

// Metadata describes where an update came from.
type Metadata struct {
	SourceIP string
	Source   Source
}

// Lifecycle selects how the registry treats records that stop being refreshed.
type Lifecycle int

const (
	// LifecyclePruneOnRead deletes stale records inside Snapshot, before the copy is taken.
	LifecyclePruneOnRead Lifecycle = iota

	// LifecycleRetainForever never removes records.
	LifecycleRetainForever
)

// String returns the configuration spelling of the lifecycle.
func (l Lifecycle) String() string {
	switch l {
	case LifecyclePruneOnRead:
		return "prune_on_read"
	case LifecycleRetainForever:
		return "retain_forever"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

// ParseLifecycle maps a configuration string to a Lifecycle.
// Returns ErrInvalidLifecycle for anything other than
// "prune_on_read" or "retain_forever".
func ParseLifecycle(s string) (Lifecycle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prune_on_read":
		return LifecyclePruneOnRead, nil
	case "retain_forever":
		return LifecycleRetainForever, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLifecycle, s)
	}
}
