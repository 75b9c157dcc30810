package inbox

import (
	"github.com/nbd-wtf/go-nostr"
	"sealbox/engine/actors"
	"sealbox/engine/library"
	"sealbox/messaging/relays"
)

var fetchLatest = relays.FetchLatest

// Resolve answers "which relays do I use to reach this pubkey". Memory first,
// then the persisted cache (served stale while a background refresh runs),
// then the network. When nobody published a kind 10050 we fall back to the
// configured default relay and cache that too, so an unreachable pubkey
// doesn't cost a network round trip every time.
//
// persist must only be requested for the session's own pubkey; hoarding
// third-party relay lists on disk is a privacy leak and unbounded growth.
func Resolve(pubkey library.Account, persist bool) []library.RelayURL {
	startDb()
	if entry, ok := fromMemory(pubkey); ok {
		return entry.Relays
	}
	if persist {
		if entry, ok := fromDisk(pubkey); ok {
			upsertMemory(pubkey, entry)
			go refresh(pubkey, persist)
			return entry.Relays
		}
	}
	entry := fromNetwork(pubkey)
	upsertMemory(pubkey, entry)
	if persist {
		persistEntry(pubkey, entry)
	}
	return entry.Relays
}

// refresh refetches a relay list and overwrites the caches only when the
// fetched event is strictly newer than what we have.
func refresh(pubkey library.Account, persist bool) {
	entry := fromNetwork(pubkey)
	if cached, ok := fromMemory(pubkey); ok {
		if entry.CreatedAt <= cached.CreatedAt {
			return
		}
	}
	upsertMemory(pubkey, entry)
	if persist {
		persistEntry(pubkey, entry)
	}
}

func fromNetwork(pubkey library.Account) cacheEntry {
	filter := nostr.Filter{
		Kinds:   []int{actors.KindInboxRelays},
		Authors: []string{pubkey},
		Limit:   1,
	}
	event, ok := fetchLatest(filter, bootstrapRelays())
	if ok {
		if urls := relayTags(event); len(urls) > 0 {
			return cacheEntry{Relays: urls, CreatedAt: event.CreatedAt}
		}
	}
	return cacheEntry{Relays: []library.RelayURL{actors.MakeOrGetConfig().GetString("fallbackRelay")}}
}

func relayTags(e nostr.Event) (urls []library.RelayURL) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{"relay"}) {
			if len(tag.Value()) > 0 {
				urls = append(urls, tag.Value())
			}
		}
	}
	return
}

func bootstrapRelays() []library.RelayURL {
	return []library.RelayURL{
		actors.MakeOrGetConfig().GetString("fallbackRelay"),
		"wss://purplepag.es",
		"wss://nos.lol",
	}
}
