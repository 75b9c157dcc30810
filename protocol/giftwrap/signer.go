package giftwrap

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
	"sealbox/engine/library"
)

// ErrNoEncryptionCapability means the active remote signer cannot do nip44
// encryption. No DM can be sent or read on that signer.
var ErrNoEncryptionCapability = fmt.Errorf("signer has no nip44 encryption capability")

// Signer is the signing backend threaded through Wrap and Unwrap. The seal
// layer is signed and encrypted with the signer's real key material; the wrap
// layer never touches it (ephemeral keys are generated locally either way).
type Signer interface {
	GetPublicKey() (library.Account, error)
	SignEvent(event *nostr.Event) error
	Encrypt(counterparty library.Account, plaintext string) (string, error)
	Decrypt(counterparty library.Account, ciphertext string) (string, error)
}

// DeriveConversationKey computes the nip44 shared secret between a local
// private key and a remote public key. A malformed key on either side is
// fatal for the send or receive that needed it.
func DeriveConversationKey(localPrivateKey string, remotePublicKey library.Account) ([32]byte, error) {
	key, err := nip44.GenerateConversationKey(remotePublicKey, localPrivateKey)
	if err != nil {
		return [32]byte{}, fmt.Errorf("could not derive conversation key: %w", err)
	}
	return key, nil
}

type rawKeySigner struct {
	privateKey string
	publicKey  library.Account
}

// NewRawKeySigner returns the fully local signing backend.
func NewRawKeySigner(privateKey string) (Signer, error) {
	pub, err := nostr.GetPublicKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("malformed private key: %w", err)
	}
	return &rawKeySigner{privateKey: privateKey, publicKey: pub}, nil
}

func (s *rawKeySigner) GetPublicKey() (library.Account, error) {
	return s.publicKey, nil
}

func (s *rawKeySigner) SignEvent(event *nostr.Event) error {
	return event.Sign(s.privateKey)
}

func (s *rawKeySigner) Encrypt(counterparty library.Account, plaintext string) (string, error) {
	key, err := DeriveConversationKey(s.privateKey, counterparty)
	if err != nil {
		return "", err
	}
	return nip44.Encrypt(plaintext, key)
}

func (s *rawKeySigner) Decrypt(counterparty library.Account, ciphertext string) (string, error) {
	key, err := DeriveConversationKey(s.privateKey, counterparty)
	if err != nil {
		return "", err
	}
	return nip44.Decrypt(ciphertext, key)
}

// RemoteSigner is the capability surface of an external signer (a browser
// extension or a NIP-46 bunker). Nip44 support is optional on the remote
// side, which is why it lives on a separate interface.
type RemoteSigner interface {
	GetPublicKey() (library.Account, error)
	SignEvent(event *nostr.Event) error
}

type RemoteEncryptor interface {
	Nip44Encrypt(pubkey library.Account, plaintext string) (string, error)
	Nip44Decrypt(pubkey library.Account, ciphertext string) (string, error)
}

type delegatedSigner struct {
	remote RemoteSigner
}

// NewDelegatedSigner wraps an external signing capability. Encryption calls
// fail with ErrNoEncryptionCapability when the remote side doesn't implement
// RemoteEncryptor.
func NewDelegatedSigner(remote RemoteSigner) Signer {
	return &delegatedSigner{remote: remote}
}

func (s *delegatedSigner) GetPublicKey() (library.Account, error) {
	return s.remote.GetPublicKey()
}

func (s *delegatedSigner) SignEvent(event *nostr.Event) error {
	return s.remote.SignEvent(event)
}

func (s *delegatedSigner) Encrypt(counterparty library.Account, plaintext string) (string, error) {
	enc, ok := s.remote.(RemoteEncryptor)
	if !ok {
		return "", ErrNoEncryptionCapability
	}
	return enc.Nip44Encrypt(counterparty, plaintext)
}

func (s *delegatedSigner) Decrypt(counterparty library.Account, ciphertext string) (string, error) {
	enc, ok := s.remote.(RemoteEncryptor)
	if !ok {
		return "", ErrNoEncryptionCapability
	}
	return enc.Nip44Decrypt(counterparty, ciphertext)
}
