package conversations

import (
	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/slices"
	"sealbox/engine/actors"
	"sealbox/engine/library"
	"sealbox/protocol/giftwrap"
)

// HandleWrap ingests one kind 1059 wire event. Redelivered wraps hit the
// decrypted-rumor cache instead of being decrypted again, and anything that
// doesn't unwrap to a usable rumor is dropped silently; the same wrap is
// routinely delivered by several relays and not every wrap on the wire is
// for us.
func HandleWrap(event nostr.Event, signer giftwrap.Signer) {
	startDb()
	local, err := signer.GetPublicKey()
	if err != nil {
		actors.LogCLI(err.Error(), 1)
		return
	}
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	rumor, ok := currentState.rumorCache[event.ID]
	if !ok {
		unwrapped, ok := giftwrap.Unwrap(event, signer)
		if !ok {
			return
		}
		rumor = *unwrapped
		currentState.rumorCache[event.ID] = rumor
		persistRumors()
	}
	fold(rumor, local)
}

// LocalEcho folds an outbound rumor into conversation state before any relay
// confirms it, cached under a synthetic key so it can never collide with a
// genuinely received wire event.
func LocalEcho(rumor nostr.Event, local library.Account) {
	startDb()
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.rumorCache["local:"+rumor.ID] = rumor
	persistRumors()
	fold(rumor, local)
}

// fold is the single entry point for state changes, serialized by the db
// mutex. Dedup happens on the rumor id, not the wire id: the sender's
// self-copy and the recipient's copy of one message share a rumor id but
// arrive in different wraps.
func fold(rumor nostr.Event, local library.Account) {
	if _, folded := currentState.seen[rumor.ID]; folded {
		return
	}
	currentState.seen[rumor.ID] = struct{}{}
	if rumor.Kind == actors.KindReaction {
		foldReaction(rumor)
		return
	}
	foldMessage(rumor, local)
}

func foldMessage(rumor nostr.Event, local library.Account) {
	conversation := conversationFor(rumor)
	message := Message{
		ID:        rumor.ID,
		Author:    rumor.PubKey,
		Content:   rumor.Content,
		CreatedAt: rumor.CreatedAt,
		Kind:      rumor.Kind,
	}
	if replyTo, ok := library.GetFirstETag(rumor); ok {
		message.ReplyTo = replyTo
	}
	//ordered by created_at, ties keep arrival order
	index := len(conversation.Messages)
	for i, existing := range conversation.Messages {
		if existing.CreatedAt > message.CreatedAt {
			index = i
			break
		}
	}
	conversation.Messages = slices.Insert(conversation.Messages, index, message)
	if rumor.CreatedAt > conversation.LastActivity {
		conversation.LastActivity = rumor.CreatedAt
	}
	if rumor.PubKey != local && rumor.CreatedAt > currentState.lastSeen[conversation.ID] {
		conversation.Unread++
	}
	currentState.conversations[conversation.ID] = *conversation
}

func foldReaction(rumor nostr.Event) {
	target, ok := library.GetFirstETag(rumor)
	if !ok {
		actors.LogCLI("reaction "+rumor.ID+" has no target", 3)
		return
	}
	conversation := conversationFor(rumor)
	for _, existing := range conversation.Reactions[target] {
		//a participant can't register the same reaction twice on one message
		if existing.Author == rumor.PubKey && existing.Emoji == rumor.Content {
			return
		}
	}
	reaction := Reaction{
		Emoji:     rumor.Content,
		Author:    rumor.PubKey,
		EmojiTags: library.GetEmojiTags(rumor),
	}
	conversation.Reactions[target] = append(conversation.Reactions[target], reaction)
	if rumor.CreatedAt > conversation.LastActivity {
		conversation.LastActivity = rumor.CreatedAt
	}
	currentState.conversations[conversation.ID] = *conversation
	persistReactions()
}

// conversationFor finds or creates the conversation a rumor belongs to.
// Participants are derived from the first-seen rumor's p-tags plus author
// and fixed thereafter.
func conversationFor(rumor nostr.Event) *Conversation {
	participants := participantsOf(rumor)
	id := ConversationID(participants...)
	conversation, ok := currentState.conversations[id]
	if !ok {
		conversation = Conversation{
			ID:           id,
			Participants: participants,
			Reactions:    make(map[library.Sha256][]Reaction),
		}
		if staged, ok := currentState.stagedReactions[id]; ok {
			for messageID, reactions := range staged {
				conversation.Reactions[messageID] = append([]Reaction{}, reactions...)
			}
		}
	}
	return &conversation
}
