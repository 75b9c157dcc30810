package eventconductor

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/library"
	"sealbox/messaging/inbox"
	"sealbox/messaging/outbox"
	"sealbox/protocol/giftwrap"
	"sealbox/state/conversations"
)

var lastSend *outbox.TrackingRecord
var lastSendMutex = &deadlock.Mutex{}

// SendDirectMessage wraps a kind 14 rumor for every recipient plus a
// self-addressed copy, folds it into local state optimistically, and issues
// tracked publishes to the union of everyone's inbox relays. It returns as
// soon as the publishes are in flight; delivery is observed through the
// record.
func SendDirectMessage(content string, recipients []library.Account, replyTo library.Sha256) (*outbox.TrackingRecord, error) {
	signer, err := activeSigner()
	if err != nil {
		return nil, err
	}
	local, err := signer.GetPublicKey()
	if err != nil {
		return nil, err
	}
	rumor := giftwrap.NewChatMessage(local, content, recipients, replyTo)
	return sendRumor(rumor, recipients, local, signer)
}

// SendReaction sends a kind 7 rumor targeting a message we have in some
// conversation.
func SendReaction(target library.Sha256, emoji string, recipients []library.Account, emojiTags nostr.Tags) (*outbox.TrackingRecord, error) {
	signer, err := activeSigner()
	if err != nil {
		return nil, err
	}
	local, err := signer.GetPublicKey()
	if err != nil {
		return nil, err
	}
	rumor := giftwrap.NewReaction(local, target, emoji, recipients, emojiTags)
	return sendRumor(rumor, recipients, local, signer)
}

// sendRumor builds every wrap before touching any state, so a capability
// failure on the signer aborts the whole send with nothing mutated and
// nothing on the wire.
func sendRumor(rumor nostr.Event, recipients []library.Account, local library.Account, signer giftwrap.Signer) (*outbox.TrackingRecord, error) {
	var wraps []outbox.SignedWrap
	for _, recipient := range deduplicate(recipients, local) {
		wrap, err := giftwrap.Wrap(rumor, recipient, signer)
		if err != nil {
			return nil, err
		}
		wraps = append(wraps, outbox.SignedWrap{Event: wrap, Relays: inbox.Resolve(recipient, false)})
	}
	//self-addressed copy so our other sessions can recover the message
	selfWrap, err := giftwrap.Wrap(rumor, local, signer)
	if err != nil {
		return nil, err
	}
	wraps = append(wraps, outbox.SignedWrap{Event: selfWrap, Relays: inbox.Resolve(local, true)})

	conversations.LocalEcho(rumor, local)
	record := outbox.Send(rumor.ID, wraps)
	lastSendMutex.Lock()
	lastSend = record
	lastSendMutex.Unlock()
	return record, nil
}

// LastSend returns the tracking record of the most recent send in this
// session, if any.
func LastSend() *outbox.TrackingRecord {
	lastSendMutex.Lock()
	defer lastSendMutex.Unlock()
	return lastSend
}

func deduplicate(recipients []library.Account, local library.Account) (out []library.Account) {
	seen := make(map[library.Account]struct{})
	for _, r := range recipients {
		if r == local {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return
}
