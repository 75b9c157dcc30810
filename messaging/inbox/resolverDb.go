package inbox

import (
	"encoding/json"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/actors"
	"sealbox/engine/library"
	"sealbox/engine/store"
)

const namespace = "relaylist"

type cacheEntry struct {
	Relays []library.RelayURL `json:"relays"`
	// timestamp of the kind 10050 event this came from; a refetched list
	// replaces it only when strictly newer
	CreatedAt nostr.Timestamp `json:"created_at"`
}

type db struct {
	data  map[library.Account]cacheEntry
	mutex *deadlock.Mutex
}

var currentState = db{
	data:  make(map[library.Account]cacheEntry),
	mutex: &deadlock.Mutex{},
}

var started = false
var available = &deadlock.Mutex{}

func startDb() {
	available.Lock()
	defer available.Unlock()
	if !started {
		started = true
		ready := make(chan struct{})
		go start(ready)
		<-ready
		actors.LogCLI("Inbox relay resolver has started", 4)
	}
}

func start(ready chan struct{}) {
	actors.GetWaitGroup().Add(1)
	close(ready)
	<-actors.GetTerminateChan()
	actors.GetWaitGroup().Done()
	actors.LogCLI("Inbox relay resolver has shut down", 4)
}

func fromMemory(pubkey library.Account) (cacheEntry, bool) {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	entry, ok := currentState.data[pubkey]
	return entry, ok
}

func upsertMemory(pubkey library.Account, entry cacheEntry) {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.data[pubkey] = entry
}

// fromDisk reads the persisted relay list. Unparsable data is a cache miss,
// never fatal.
func fromDisk(pubkey library.Account) (cacheEntry, bool) {
	b, ok := store.Current().Load(namespace)
	if !ok {
		return cacheEntry{}, false
	}
	persisted := make(map[library.Account]cacheEntry)
	if err := json.Unmarshal(b, &persisted); err != nil {
		actors.LogCLI("discarding corrupt relay list cache: "+err.Error(), 2)
		return cacheEntry{}, false
	}
	entry, ok := persisted[pubkey]
	return entry, ok
}

func persistEntry(pubkey library.Account, entry cacheEntry) {
	persisted := make(map[library.Account]cacheEntry)
	if b, ok := store.Current().Load(namespace); ok {
		if err := json.Unmarshal(b, &persisted); err != nil {
			persisted = make(map[library.Account]cacheEntry)
		}
	}
	persisted[pubkey] = entry
	b, err := json.Marshal(persisted)
	if err != nil {
		actors.LogCLI(err.Error(), 1)
		return
	}
	store.Current().Save(namespace, b)
}

// Flush drops the in-memory cache. The persisted cache is untouched.
func Flush() {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.data = make(map[library.Account]cacheEntry)
}
