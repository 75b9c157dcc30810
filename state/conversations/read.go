package conversations

import (
	"github.com/nbd-wtf/go-nostr"
	"sealbox/engine/library"
)

// MarkAsRead sets the conversation's last-seen timestamp to now and zeroes
// its unread counter.
func MarkAsRead(id library.ConversationID) {
	startDb()
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	markAsRead(id)
	persistReadState()
}

// MarkAllAsRead does the same for every conversation with unread messages.
func MarkAllAsRead() {
	startDb()
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	for id, conversation := range currentState.conversations {
		if conversation.Unread > 0 {
			markAsRead(id)
		}
	}
	persistReadState()
}

func markAsRead(id library.ConversationID) {
	currentState.lastSeen[id] = nostr.Now()
	if conversation, ok := currentState.conversations[id]; ok {
		conversation.Unread = 0
		currentState.conversations[id] = conversation
	}
}
