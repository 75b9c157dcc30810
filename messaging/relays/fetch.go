package relays

import (
	"context"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/actors"
	"sealbox/engine/library"
)

// FetchLatest queries every given relay for events matching the filter and
// returns the one with the greatest created_at, or false if nothing came
// back before the per-relay timeout.
func FetchLatest(filter nostr.Filter, urls []library.RelayURL) (n nostr.Event, b bool) {
	if actors.MakeOrGetConfig().GetBool("offline") {
		return
	}
	sane := library.ValidateSaneExecutionTime()
	defer sane()
	events := make(map[string]nostr.Event)
	eventsMu := &deadlock.Mutex{}
	filters := nostr.Filters{filter}
	wait := &sync.WaitGroup{}
	for _, url := range urls {
		wait.Add(1)
		go func(url string) {
			defer wait.Done()
			ctx := context.Background()
			relay, err := nostr.RelayConnect(ctx, url)
			if err != nil {
				return
			}
			ctxsub, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			sub, err := relay.Subscribe(ctxsub, filters)
			if err != nil {
				actors.LogCLI(err.Error(), 2)
				relay.Close()
				return
			}
		L:
			for {
				select {
				case ev := <-sub.Events:
					if ev == nil {
						break L
					}
					eventsMu.Lock()
					events[ev.ID] = *ev
					eventsMu.Unlock()
				case <-sub.EndOfStoredEvents:
					break L
				case <-time.After(time.Second * 6):
					break L
				}
			}
			sub.Unsub()
			relay.Close()
		}(url)
	}
	wait.Wait()
	var timestamp nostr.Timestamp
	for _, event := range events {
		if event.CreatedAt > timestamp {
			b = true
			n = event
			timestamp = event.CreatedAt
		}
	}
	return
}
