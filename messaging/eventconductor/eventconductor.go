package eventconductor

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/actors"
	"sealbox/engine/library"
	"sealbox/messaging/inbox"
	"sealbox/messaging/relays"
	"sealbox/protocol/giftwrap"
	"sealbox/state/conversations"
)

var session struct {
	signer giftwrap.Signer
	end    chan struct{}
	mutex  deadlock.Mutex
}

// Start opens the single live subscription for this session: kind 1059 wraps
// addressed to the signer's pubkey on the signer's own inbox relays. Wraps
// that were stored while we were offline are buffered and folded in one pass
// once the relays signal the end of stored events, then we fold live.
func Start(signer giftwrap.Signer) error {
	local, err := signer.GetPublicKey()
	if err != nil {
		return fmt.Errorf("could not start session: %w", err)
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.end != nil {
		return fmt.Errorf("a session is already active")
	}
	session.signer = signer
	session.end = make(chan struct{})
	go handleEvents(signer, local, session.end)
	return nil
}

func handleEvents(signer giftwrap.Signer, local library.Account, end chan struct{}) {
	actors.GetWaitGroup().Add(1)
	defer actors.GetWaitGroup().Done()
	var eventChan = make(chan nostr.Event)
	var eoseChan = make(chan bool)
	filter := nostr.Filter{
		Kinds: []int{actors.KindGiftWrap},
		Tags:  nostr.TagMap{"p": []string{local}},
	}
	relays.Subscribe(inbox.Resolve(local, true), filter, eventChan, eoseChan, end)
	stack := library.NewEventStack(8)
	var eose bool
	for {
		select {
		case <-eoseChan:
			eose = true
			for {
				event, ok := stack.Pop()
				if !ok {
					break
				}
				conversations.HandleWrap(*event, signer)
			}
		case event := <-eventChan:
			if !eose {
				buffered := event
				stack.Push(&buffered)
				break
			}
			conversations.HandleWrap(event, signer)
		case <-end:
			return
		case <-actors.GetTerminateChan():
			return
		}
	}
}

// Stop tears the session down: unsubscribes, drops the in-memory seen-set,
// conversation state and relay cache. Persisted caches survive for the next
// session.
func Stop() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.end == nil {
		return
	}
	close(session.end)
	session.end = nil
	session.signer = nil
	lastSendMutex.Lock()
	lastSend = nil
	lastSendMutex.Unlock()
	conversations.Flush()
	inbox.Flush()
	actors.LogCLI("session closed", 4)
}

func activeSigner() (giftwrap.Signer, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.signer == nil {
		return nil, fmt.Errorf("no active session")
	}
	return session.signer, nil
}
