package giftwrap

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
	"sealbox/engine/actors"
	"sealbox/engine/library"
)

// testRemoteSigner plays the part of an external signer capability that can
// also do nip44.
type testRemoteSigner struct {
	sk string
	pk string
}

func (s *testRemoteSigner) GetPublicKey() (library.Account, error) { return s.pk, nil }
func (s *testRemoteSigner) SignEvent(e *nostr.Event) error         { return e.Sign(s.sk) }
func (s *testRemoteSigner) Nip44Encrypt(pubkey library.Account, plaintext string) (string, error) {
	key, err := DeriveConversationKey(s.sk, pubkey)
	if err != nil {
		return "", err
	}
	return nip44.Encrypt(plaintext, key)
}
func (s *testRemoteSigner) Nip44Decrypt(pubkey library.Account, ciphertext string) (string, error) {
	key, err := DeriveConversationKey(s.sk, pubkey)
	if err != nil {
		return "", err
	}
	return nip44.Decrypt(ciphertext, key)
}

// signOnlyRemote has no encryption capability at all.
type signOnlyRemote struct {
	sk string
	pk string
}

func (s *signOnlyRemote) GetPublicKey() (library.Account, error) { return s.pk, nil }
func (s *signOnlyRemote) SignEvent(e *nostr.Event) error         { return e.Sign(s.sk) }

func newKeypair(t *testing.T) (string, string) {
	t.Helper()
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		t.Fatalf("GetPublicKey failed: %v", err)
	}
	return sk, pk
}

func TestRumorIDDeterminism(t *testing.T) {
	_, alicePK := newKeypair(t)
	_, bobPK := newKeypair(t)
	rumor := NewChatMessage(alicePK, "hello", []library.Account{bobPK}, "")
	if ComputeRumorID(rumor) != ComputeRumorID(rumor) {
		t.Fatal("same rumor hashed to different ids")
	}

	mutations := map[string]func(nostr.Event) nostr.Event{
		"content": func(r nostr.Event) nostr.Event {
			r.Content = "hello!"
			return r
		},
		"created_at": func(r nostr.Event) nostr.Event {
			r.CreatedAt = r.CreatedAt + 1
			return r
		},
		"kind": func(r nostr.Event) nostr.Event {
			r.Kind = actors.KindReaction
			return r
		},
		"pubkey": func(r nostr.Event) nostr.Event {
			r.PubKey = bobPK
			return r
		},
		"tags": func(r nostr.Event) nostr.Event {
			r.Tags = append(nostr.Tags{}, r.Tags...)
			r.Tags = append(r.Tags, nostr.Tag{"p", alicePK})
			return r
		},
	}
	for field, mutate := range mutations {
		if ComputeRumorID(mutate(rumor)) == ComputeRumorID(rumor) {
			t.Errorf("changing %s did not change the rumor id", field)
		}
	}
}

func TestWrapUnwrapRoundtripRawKey(t *testing.T) {
	aliceSK, alicePK := newKeypair(t)
	bobSK, bobPK := newKeypair(t)
	aliceSigner, err := NewRawKeySigner(aliceSK)
	if err != nil {
		t.Fatal(err)
	}
	bobSigner, err := NewRawKeySigner(bobSK)
	if err != nil {
		t.Fatal(err)
	}

	rumor := NewChatMessage(alicePK, "hi", []library.Account{bobPK}, "")
	wrap, err := Wrap(rumor, bobPK, aliceSigner)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if wrap.Kind != actors.KindGiftWrap {
		t.Errorf("wrap kind = %d, want %d", wrap.Kind, actors.KindGiftWrap)
	}
	if wrap.PubKey == alicePK {
		t.Error("wrap is signed by the real sender key, it must be ephemeral")
	}
	if ok, _ := wrap.CheckSignature(); !ok {
		t.Error("wrap signature does not verify")
	}
	if recipient, ok := library.GetFirstTag(wrap, "p"); !ok || recipient != bobPK {
		t.Errorf("wrap p-tag = %q, want %q", recipient, bobPK)
	}
	now := time.Now().Unix()
	if int64(wrap.CreatedAt) > now || int64(wrap.CreatedAt) < now-twoDays-5 {
		t.Errorf("wrap timestamp %d is outside the randomization window", wrap.CreatedAt)
	}

	unwrapped, ok := Unwrap(wrap, bobSigner)
	if !ok {
		t.Fatal("Unwrap returned nothing for a valid wrap")
	}
	if unwrapped.Content != "hi" {
		t.Errorf("content = %q, want %q", unwrapped.Content, "hi")
	}
	if unwrapped.Kind != actors.KindChatMessage {
		t.Errorf("kind = %d, want %d", unwrapped.Kind, actors.KindChatMessage)
	}
	if unwrapped.PubKey != alicePK {
		t.Errorf("author = %s, want %s", unwrapped.PubKey, alicePK)
	}
	if unwrapped.ID != rumor.ID {
		t.Errorf("rumor id changed across the roundtrip: %s != %s", unwrapped.ID, rumor.ID)
	}
}

func TestWrapUnwrapRoundtripDelegatedSigner(t *testing.T) {
	aliceSK, alicePK := newKeypair(t)
	bobSK, bobPK := newKeypair(t)
	aliceSigner := NewDelegatedSigner(&testRemoteSigner{sk: aliceSK, pk: alicePK})
	bobSigner := NewDelegatedSigner(&testRemoteSigner{sk: bobSK, pk: bobPK})

	rumor := NewChatMessage(alicePK, "delegated hello", []library.Account{bobPK}, "")
	wrap, err := Wrap(rumor, bobPK, aliceSigner)
	if err != nil {
		t.Fatalf("Wrap failed on the delegated path: %v", err)
	}
	unwrapped, ok := Unwrap(wrap, bobSigner)
	if !ok {
		t.Fatal("Unwrap returned nothing on the delegated path")
	}
	if unwrapped.Content != "delegated hello" || unwrapped.PubKey != alicePK {
		t.Errorf("unexpected rumor after roundtrip: %+v", unwrapped)
	}
}

func TestDelegatedSignerWithoutEncryptionIsACapabilityError(t *testing.T) {
	aliceSK, alicePK := newKeypair(t)
	_, bobPK := newKeypair(t)
	signer := NewDelegatedSigner(&signOnlyRemote{sk: aliceSK, pk: alicePK})

	rumor := NewChatMessage(alicePK, "hi", []library.Account{bobPK}, "")
	_, err := Wrap(rumor, bobPK, signer)
	if !errors.Is(err, ErrNoEncryptionCapability) {
		t.Fatalf("err = %v, want ErrNoEncryptionCapability", err)
	}
}

// A seal whose signer is not the rumor's claimed author must be discarded.
// This is the only authenticity check an unsigned rumor gets.
func TestSealAuthorMismatchIsDiscarded(t *testing.T) {
	_, alicePK := newKeypair(t)
	bobSK, bobPK := newKeypair(t)
	mallorySK, _ := newKeypair(t)
	bobSigner, _ := NewRawKeySigner(bobSK)
	mallorySigner, _ := NewRawKeySigner(mallorySK)

	//mallory seals a rumor that claims alice wrote it
	rumor := NewChatMessage(alicePK, "pretend this is from alice", []library.Account{bobPK}, "")
	rumorJSON, _ := json.Marshal(rumor)
	sealedRumor, err := mallorySigner.Encrypt(bobPK, string(rumorJSON))
	if err != nil {
		t.Fatal(err)
	}
	seal := nostr.Event{
		Kind:      actors.KindSeal,
		Content:   sealedRumor,
		CreatedAt: nostr.Now(),
		Tags:      nostr.Tags{},
	}
	if err := mallorySigner.SignEvent(&seal); err != nil {
		t.Fatal(err)
	}
	sealJSON, _ := json.Marshal(seal)
	ephemeral := nostr.GeneratePrivateKey()
	wrapKey, err := DeriveConversationKey(ephemeral, bobPK)
	if err != nil {
		t.Fatal(err)
	}
	wrappedSeal, err := nip44.Encrypt(string(sealJSON), wrapKey)
	if err != nil {
		t.Fatal(err)
	}
	wrap := nostr.Event{
		Kind:      actors.KindGiftWrap,
		Content:   wrappedSeal,
		CreatedAt: nostr.Now(),
		Tags:      nostr.Tags{nostr.Tag{"p", bobPK}},
	}
	if err := wrap.Sign(ephemeral); err != nil {
		t.Fatal(err)
	}

	if rumor, ok := Unwrap(wrap, bobSigner); ok {
		t.Fatalf("Unwrap accepted a forged seal, got rumor %+v", rumor)
	}
}

// Unwrap is attempted against anything on the subscription, so garbage must
// come back as (nil, false), never an error or panic.
func TestUnwrapGarbageYieldsNothing(t *testing.T) {
	bobSK, bobPK := newKeypair(t)
	bobSigner, _ := NewRawKeySigner(bobSK)
	ephemeral := nostr.GeneratePrivateKey()
	garbage := nostr.Event{
		Kind:      actors.KindGiftWrap,
		Content:   "not nip44 ciphertext at all",
		CreatedAt: nostr.Now(),
		Tags:      nostr.Tags{nostr.Tag{"p", bobPK}},
	}
	if err := garbage.Sign(ephemeral); err != nil {
		t.Fatal(err)
	}
	if _, ok := Unwrap(garbage, bobSigner); ok {
		t.Fatal("Unwrap produced a rumor from garbage ciphertext")
	}
}

func TestDeriveConversationKeyRejectsMalformedKeys(t *testing.T) {
	_, alicePK := newKeypair(t)
	if _, err := DeriveConversationKey("not a key", alicePK); err == nil {
		t.Error("expected an error for a malformed private key")
	}
	if _, err := NewRawKeySigner("not a key"); err == nil {
		t.Error("expected an error for a malformed raw signer key")
	}
}

func TestSignerEncryptionRoundtrip(t *testing.T) {
	//the seal path leans on nip44's default nonce generation, so a plain
	//Encrypt with no options has to succeed and round-trip
	aliceSK, _ := newKeypair(t)
	_, bobPK := newKeypair(t)
	aliceSigner, err := NewRawKeySigner(aliceSK)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, err := aliceSigner.Encrypt(bobPK, "sealed payload")
	if err != nil {
		t.Fatalf("Encrypt failed on a valid keypair: %v", err)
	}
	plaintext, err := aliceSigner.Decrypt(bobPK, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plaintext != "sealed payload" {
		t.Errorf("round-trip produced %q", plaintext)
	}
}
