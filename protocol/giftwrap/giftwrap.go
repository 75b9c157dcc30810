package giftwrap

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
	"sealbox/engine/actors"
	"sealbox/engine/library"
)

// ComputeRumorID hashes the canonical serialization
// [0, pubkey, created_at, kind, tags, content]. Every client must agree on
// this id, it is the only identifier a rumor carries.
func ComputeRumorID(rumor nostr.Event) library.Sha256 {
	return library.Sha256Sum(rumor.Serialize())
}

// Wrap takes an unsigned rumor through seal and wrap for one destination.
// The seal is signed by the signer's real key, the wrap by a fresh ephemeral
// key that is never reused. Both carry independently randomized timestamps so
// neither layer leaks the send time.
func Wrap(rumor nostr.Event, recipient library.Account, signer Signer) (nostr.Event, error) {
	author, err := signer.GetPublicKey()
	if err != nil {
		return nostr.Event{}, fmt.Errorf("could not get signer pubkey: %w", err)
	}
	rumor.PubKey = author
	rumor.ID = ComputeRumorID(rumor)
	rumorJSON, err := json.Marshal(rumor)
	if err != nil {
		return nostr.Event{}, err
	}

	sealedRumor, err := signer.Encrypt(recipient, string(rumorJSON))
	if err != nil {
		return nostr.Event{}, fmt.Errorf("could not seal rumor: %w", err)
	}
	seal := nostr.Event{
		Kind:      actors.KindSeal,
		Content:   sealedRumor,
		CreatedAt: randomPastTimestamp(),
		Tags:      nostr.Tags{}, //tags MUST be empty on a seal
		PubKey:    author,
	}
	if err := signer.SignEvent(&seal); err != nil {
		return nostr.Event{}, fmt.Errorf("could not sign seal: %w", err)
	}

	ephemeralKey := nostr.GeneratePrivateKey()
	sealJSON, err := json.Marshal(seal)
	if err != nil {
		return nostr.Event{}, err
	}
	wrapKey, err := DeriveConversationKey(ephemeralKey, recipient)
	if err != nil {
		return nostr.Event{}, err
	}
	wrappedSeal, err := nip44.Encrypt(string(sealJSON), wrapKey)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("could not encrypt seal: %w", err)
	}
	wrap := nostr.Event{
		Kind:      actors.KindGiftWrap,
		Content:   wrappedSeal,
		CreatedAt: randomPastTimestamp(),
		Tags:      nostr.Tags{nostr.Tag{"p", recipient}},
	}
	if err := wrap.Sign(ephemeralKey); err != nil {
		return nostr.Event{}, fmt.Errorf("could not sign wrap: %w", err)
	}
	return wrap, nil
}

// Unwrap is attempted speculatively against anything that arrives on the
// wraps subscription, so every failure just means "no rumor here". The seal's
// signature is verified against its claimed pubkey, and that pubkey must
// match the rumor's author, which is the only thing tying the unsigned rumor
// to a real signer.
func Unwrap(wrap nostr.Event, signer Signer) (*nostr.Event, bool) {
	sealJSON, err := signer.Decrypt(wrap.PubKey, wrap.Content)
	if err != nil {
		library.LogCLI(fmt.Sprintf("could not unwrap %s: %s", wrap.ID, err.Error()), 3)
		return nil, false
	}
	var seal nostr.Event
	if err := json.Unmarshal([]byte(sealJSON), &seal); err != nil {
		library.LogCLI(fmt.Sprintf("wrap %s did not contain a seal", wrap.ID), 3)
		return nil, false
	}
	if seal.Kind != actors.KindSeal {
		return nil, false
	}
	if ok, _ := seal.CheckSignature(); !ok {
		library.LogCLI(fmt.Sprintf("seal in wrap %s has an invalid signature", wrap.ID), 3)
		return nil, false
	}
	rumorJSON, err := signer.Decrypt(seal.PubKey, seal.Content)
	if err != nil {
		library.LogCLI(fmt.Sprintf("could not open seal %s: %s", seal.ID, err.Error()), 3)
		return nil, false
	}
	var rumor nostr.Event
	if err := json.Unmarshal([]byte(rumorJSON), &rumor); err != nil {
		return nil, false
	}
	if seal.PubKey != rumor.PubKey {
		library.LogCLI(fmt.Sprintf("seal %s claims a rumor it did not sign", seal.ID), 3)
		return nil, false
	}
	rumor.ID = ComputeRumorID(rumor)
	return &rumor, true
}

const twoDays int64 = 60 * 60 * 24 * 2

// uniform over the past 48 hours, per NIP-59
func randomPastTimestamp() nostr.Timestamp {
	return nostr.Timestamp(time.Now().Unix() - rand.Int63n(twoDays))
}
