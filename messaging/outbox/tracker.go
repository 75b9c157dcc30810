package outbox

import (
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/actors"
	"sealbox/engine/library"
	"sealbox/messaging/relays"
)

var publishToRelay = relays.PublishToRelay

// Send issues one tracked publish per unique relay across all wraps and
// returns immediately with every status pending. A relay named by both the
// recipient set and the self-copy set gets exactly one publish operation
// carrying every wrap bound to it. Delivery is observed asynchronously
// through the returned record.
func Send(rumorID library.Sha256, wraps []SignedWrap) *TrackingRecord {
	record := &TrackingRecord{
		RumorID: rumorID,
		mutex:   &deadlock.Mutex{},
		status:  make(map[library.RelayURL]Status),
		byRelay: make(map[library.RelayURL][]nostr.Event),
		attempt: make(map[library.RelayURL]int),
	}
	for _, wrap := range wraps {
		for _, url := range wrap.Relays {
			if hasEvent(record.byRelay[url], wrap.Event.ID) {
				continue
			}
			record.byRelay[url] = append(record.byRelay[url], wrap.Event)
			record.status[url] = StatusPending
		}
	}
	for url := range record.byRelay {
		go record.race(url, 0)
	}
	return record
}

func hasEvent(events []nostr.Event, id library.Sha256) bool {
	for _, e := range events {
		if e.ID == id {
			return true
		}
	}
	return false
}

// race publishes to one relay and settles on whichever comes first: the
// relay's verdict or the timeout. Terminal states are monotonic, only an
// explicit Retry moves a relay out of one.
func (t *TrackingRecord) race(url library.RelayURL, attempt int) {
	t.mutex.Lock()
	events := t.byRelay[url]
	t.mutex.Unlock()
	timeout := time.Duration(actors.MakeOrGetConfig().GetInt64("publishTimeoutSeconds")) * time.Second
	select {
	case err := <-publishToRelay(url, events):
		if err != nil {
			t.settle(url, attempt, StatusFailed)
		} else {
			t.settle(url, attempt, StatusSent)
		}
	case <-time.After(timeout):
		actors.LogCLI(fmt.Sprintf("relay %s did not answer within %s", url, timeout), 2)
		t.settle(url, attempt, StatusTimeout)
	}
}

func (t *TrackingRecord) settle(url library.RelayURL, attempt int, status Status) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	//a result from a superseded attempt must not clobber a retry in flight
	if t.attempt[url] != attempt {
		return
	}
	if t.status[url] != StatusPending {
		return
	}
	t.status[url] = status
}

// Retry re-publishes the original signed wraps to relays that still need
// them. No re-encryption, no new ephemeral keys: the events stored at Send
// time go out again as they are. With a nil subset every failed or timed-out
// relay is retried; relays that were never part of the record are ignored.
func (t *TrackingRecord) Retry(subset []library.RelayURL) {
	t.mutex.Lock()
	targets := subset
	if targets == nil {
		for url := range t.status {
			targets = append(targets, url)
		}
	}
	type job struct {
		url     library.RelayURL
		attempt int
	}
	var jobs []job
	for _, url := range targets {
		status, tracked := t.status[url]
		if !tracked {
			continue
		}
		if status == StatusSent || status == StatusPending {
			continue
		}
		t.status[url] = StatusPending
		t.attempt[url]++
		jobs = append(jobs, job{url: url, attempt: t.attempt[url]})
	}
	t.mutex.Unlock()
	for _, j := range jobs {
		go t.race(j.url, j.attempt)
	}
}
