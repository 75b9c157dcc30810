package library

import (
	"github.com/nbd-wtf/go-nostr"
)

func GetFirstTag(e nostr.Event, startsWith string) (string, bool) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{startsWith}) {
			return tag.Value(), true
		}
	}
	return "", false
}

// GetAllPTags returns every pubkey named in a p-tag, in tag order.
func GetAllPTags(e nostr.Event) (r []Account) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{"p"}) {
			if len(tag.Value()) == 64 {
				r = append(r, tag.Value())
			}
		}
	}
	return
}

func GetFirstETag(e nostr.Event) (Sha256, bool) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{"e"}) {
			if len(tag.Value()) == 64 {
				return tag.Value(), true
			}
		}
	}
	return "", false
}

// GetEmojiTags returns any custom-emoji tags (shortcode, image URL pairs).
func GetEmojiTags(e nostr.Event) (r []nostr.Tag) {
	for _, tag := range e.Tags {
		if tag.StartsWith([]string{"emoji"}) {
			if len(tag) > 2 {
				r = append(r, tag)
			}
		}
	}
	return
}
