package conversations

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/slices"
	"sealbox/engine/library"
)

type Mapped map[library.ConversationID]Conversation

// Conversation is the folded state of one set of participants. Participants
// are fixed from the first rumor seen for them; everything else evolves with
// the stream.
type Conversation struct {
	ID           library.ConversationID
	Participants []library.Account
	Messages     []Message
	Reactions    map[library.Sha256][]Reaction
	LastActivity nostr.Timestamp
	Unread       int64
}

type Message struct {
	ID        library.Sha256
	Author    library.Account
	Content   string
	CreatedAt nostr.Timestamp
	Kind      int
	ReplyTo   library.Sha256
}

// Reaction's emoji is either literal or a :shortcode:, in which case
// EmojiTags carries the shortcode's image URL.
type Reaction struct {
	Emoji     string
	Author    library.Account
	EmojiTags nostr.Tags
}

// ConversationID is the sorted deduplicated union of the participants joined
// with a fixed separator, so every participant computes the same id.
func ConversationID(participants ...library.Account) library.ConversationID {
	set := make(map[library.Account]struct{})
	for _, p := range participants {
		if len(p) == 64 {
			set[p] = struct{}{}
		}
	}
	var sorted []library.Account
	for p := range set {
		sorted = append(sorted, p)
	}
	slices.Sort(sorted)
	return strings.Join(sorted, "|")
}

func participantsOf(rumor nostr.Event) []library.Account {
	return append(library.GetAllPTags(rumor), rumor.PubKey)
}
