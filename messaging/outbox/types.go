package outbox

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/library"
)

type Status int

const (
	StatusPending Status = iota
	StatusSent
	StatusFailed
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	}
	return "pending"
}

// SignedWrap is one already-signed wrap event and the relays it should land
// on. Retry republishes these exact events; keys are never re-derived.
type SignedWrap struct {
	Event  nostr.Event
	Relays []library.RelayURL
}

// TrackingRecord tracks one locally originated rumor across every relay it
// was published to. The UI layer holds a reference to it for live status,
// it is never copied.
type TrackingRecord struct {
	RumorID library.Sha256

	mutex   *deadlock.Mutex
	status  map[library.RelayURL]Status
	byRelay map[library.RelayURL][]nostr.Event
	attempt map[library.RelayURL]int
}

// Statuses returns a snapshot of the per-relay delivery state.
func (t *TrackingRecord) Statuses() map[library.RelayURL]Status {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	m := make(map[library.RelayURL]Status)
	for url, status := range t.status {
		m[url] = status
	}
	return m
}

// Undelivered returns the relays that still need this rumor.
func (t *TrackingRecord) Undelivered() (urls []library.RelayURL) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for url, status := range t.status {
		if status == StatusFailed || status == StatusTimeout {
			urls = append(urls, url)
		}
	}
	return
}

// Wraps returns the original signed wrap events held by the record, the
// exact objects any retry republishes.
func (t *TrackingRecord) Wraps() []nostr.Event {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var out []nostr.Event
	seen := make(map[library.Sha256]struct{})
	for _, events := range t.byRelay {
		for _, e := range events {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// Delivered reports whether at least one relay accepted the rumor.
func (t *TrackingRecord) Delivered() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, status := range t.status {
		if status == StatusSent {
			return true
		}
	}
	return false
}
