package conversations

import (
	"encoding/json"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/actors"
	"sealbox/engine/library"
	"sealbox/engine/store"
)

const rumorNamespace = "rumors"
const reactionNamespace = "reactions"
const readNamespace = "readstate"

type db struct {
	conversations map[library.ConversationID]Conversation
	// decrypted rumors keyed by the wire event id that carried them (or a
	// synthetic local: key for optimistic echoes); persisted
	rumorCache map[library.Sha256]nostr.Event
	// logical rumor ids already folded; in-memory only
	seen map[library.Sha256]struct{}
	// per-conversation last-seen timestamps; persisted
	lastSeen map[library.ConversationID]nostr.Timestamp
	// reactions persisted per conversation so a reload shows badges before
	// the live subscription catches up
	stagedReactions map[library.ConversationID]map[library.Sha256][]Reaction
	mutex           *deadlock.Mutex
}

var currentState = db{
	conversations:   make(map[library.ConversationID]Conversation),
	rumorCache:      make(map[library.Sha256]nostr.Event),
	seen:            make(map[library.Sha256]struct{}),
	lastSeen:        make(map[library.ConversationID]nostr.Timestamp),
	stagedReactions: make(map[library.ConversationID]map[library.Sha256][]Reaction),
	mutex:           &deadlock.Mutex{},
}

var started = false
var available = &deadlock.Mutex{}

// startDb starts the database for this mind. It blocks until the database is
// ready to use.
func startDb() {
	available.Lock()
	defer available.Unlock()
	if !started {
		started = true
		ready := make(chan struct{})
		go start(ready)
		<-ready
		actors.LogCLI("Conversations Mind has started", 4)
	}
}

func start(ready chan struct{}) {
	actors.GetWaitGroup().Add(1)
	currentState.mutex.Lock()
	restore()
	currentState.mutex.Unlock()
	close(ready)
	<-actors.GetTerminateChan()
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	persistAll()
	actors.GetWaitGroup().Done()
	actors.LogCLI("Conversations Mind has shut down", 4)
}

// restore loads the persisted caches. Anything unparsable is treated as a
// cache miss.
func restore() {
	if b, ok := store.Current().Load(rumorNamespace); ok {
		if err := json.Unmarshal(b, &currentState.rumorCache); err != nil {
			actors.LogCLI("discarding corrupt rumor cache: "+err.Error(), 2)
			currentState.rumorCache = make(map[library.Sha256]nostr.Event)
		}
	}
	if b, ok := store.Current().Load(readNamespace); ok {
		if err := json.Unmarshal(b, &currentState.lastSeen); err != nil {
			actors.LogCLI("discarding corrupt read state: "+err.Error(), 2)
			currentState.lastSeen = make(map[library.ConversationID]nostr.Timestamp)
		}
	}
	if b, ok := store.Current().Load(reactionNamespace); ok {
		if err := json.Unmarshal(b, &currentState.stagedReactions); err != nil {
			actors.LogCLI("discarding corrupt reaction cache: "+err.Error(), 2)
			currentState.stagedReactions = make(map[library.ConversationID]map[library.Sha256][]Reaction)
		}
	}
}

func persistAll() {
	persistRumors()
	persistReadState()
	persistReactions()
}

func persistRumors() {
	if b, err := json.Marshal(currentState.rumorCache); err == nil {
		store.Current().Save(rumorNamespace, b)
	}
}

func persistReadState() {
	if b, err := json.Marshal(currentState.lastSeen); err == nil {
		store.Current().Save(readNamespace, b)
	}
}

func persistReactions() {
	for id, conversation := range currentState.conversations {
		if len(conversation.Reactions) > 0 {
			currentState.stagedReactions[id] = conversation.Reactions
		}
	}
	if b, err := json.Marshal(currentState.stagedReactions); err == nil {
		store.Current().Save(reactionNamespace, b)
	}
}

// GetMap returns a read-only copy of every conversation.
func GetMap() Mapped {
	startDb()
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	m := make(Mapped)
	for id, conversation := range currentState.conversations {
		m[id] = copyConversation(conversation)
	}
	return m
}

func GetConversation(id library.ConversationID) (Conversation, bool) {
	startDb()
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	conversation, ok := currentState.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	return copyConversation(conversation), true
}

func copyConversation(c Conversation) Conversation {
	out := c
	out.Participants = append([]library.Account{}, c.Participants...)
	out.Messages = append([]Message{}, c.Messages...)
	out.Reactions = make(map[library.Sha256][]Reaction)
	for id, reactions := range c.Reactions {
		out.Reactions[id] = append([]Reaction{}, reactions...)
	}
	return out
}

// Flush drops the in-memory conversation state and seen-set for a session
// teardown. Persisted caches are untouched.
func Flush() {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	persistAll()
	currentState.conversations = make(map[library.ConversationID]Conversation)
	currentState.seen = make(map[library.Sha256]struct{})
}
