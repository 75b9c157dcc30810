package giftwrap

import (
	"github.com/nbd-wtf/go-nostr"
	"sealbox/engine/actors"
	"sealbox/engine/library"
)

// NewChatMessage builds an unsigned kind 14 rumor addressed to the given
// recipients. replyTo may be empty; when set it becomes the e-tag consumers
// use for threading. The rumor keeps its real timestamp, only the outer
// layers get randomized ones.
func NewChatMessage(author library.Account, content string, recipients []library.Account, replyTo library.Sha256) nostr.Event {
	tags := nostr.Tags{}
	for _, recipient := range recipients {
		tags = append(tags, nostr.Tag{"p", recipient})
	}
	if len(replyTo) == 64 {
		tags = append(tags, nostr.Tag{"e", replyTo, "", "reply"})
	}
	rumor := nostr.Event{
		PubKey:    author,
		CreatedAt: nostr.Now(),
		Kind:      actors.KindChatMessage,
		Tags:      tags,
		Content:   content,
	}
	rumor.ID = ComputeRumorID(rumor)
	return rumor
}

// NewReaction builds an unsigned kind 7 rumor targeting a message. emoji is
// either a literal emoji or a :shortcode:, in which case emojiTags should
// carry the shortcode and its image URL.
func NewReaction(author library.Account, targetMessage library.Sha256, emoji string, recipients []library.Account, emojiTags nostr.Tags) nostr.Event {
	tags := nostr.Tags{nostr.Tag{"e", targetMessage}}
	for _, recipient := range recipients {
		tags = append(tags, nostr.Tag{"p", recipient})
	}
	tags = append(tags, emojiTags...)
	rumor := nostr.Event{
		PubKey:    author,
		CreatedAt: nostr.Now(),
		Kind:      actors.KindReaction,
		Tags:      tags,
		Content:   emoji,
	}
	rumor.ID = ComputeRumorID(rumor)
	return rumor
}
