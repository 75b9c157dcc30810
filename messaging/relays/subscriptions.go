package relays

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/actors"
	"sealbox/engine/library"
)

// Subscribe opens one subscription per relay and funnels everything into
// eventChan. eoseChan gets exactly one signal, when the first relay reports
// the end of its stored events. Closing stop tears every connection down.
// Dead connections (and system sleep on darwin) cause a reconnect with Since
// set so we don't replay the whole history.
func Subscribe(urls []library.RelayURL, filter nostr.Filter, eventChan chan nostr.Event, eoseChan chan bool, stop chan struct{}) {
	if actors.MakeOrGetConfig().GetBool("offline") {
		go func() { eoseChan <- true }()
		return
	}
	var eoseOnce = &deadlock.Mutex{}
	var eoseSent bool
	signalEose := func() {
		eoseOnce.Lock()
		defer eoseOnce.Unlock()
		if !eoseSent {
			eoseSent = true
			go func() { eoseChan <- true }()
		}
	}
	var sleepChan = make(chan bool)
	sleeper(sleepChan)
	for _, url := range urls {
		go subscribeToRelay(url, filter, eventChan, signalEose, stop, sleepChan)
	}
}

func subscribeToRelay(url library.RelayURL, filter nostr.Filter, eventChan chan nostr.Event, signalEose func(), stop chan struct{}, sleepChan chan bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		actors.LogCLI(err.Error(), 2)
		retryLater(url, filter, eventChan, signalEose, stop, sleepChan)
		return
	}
	actors.LogCLI("Connected to "+relay.URL, 4)
	sub, err := relay.Subscribe(ctx, nostr.Filters{filter})
	if err != nil {
		actors.LogCLI(err.Error(), 2)
		relay.Close()
		retryLater(url, filter, eventChan, signalEose, stop, sleepChan)
		return
	}
	go func() {
		select {
		case <-sub.EndOfStoredEvents:
			signalEose()
		case <-stop:
		}
	}()
	var lastEventTime = nostr.Now()
L:
	for {
		select {
		case <-sleepChan:
			cancel()
			if stopping(stop) {
				relay.Close()
				break L
			}
			actors.LogCLI("system sleep detected, reconnecting to "+url, 2)
			filter.Since = &lastEventTime
			go subscribeToRelay(url, filter, eventChan, signalEose, stop, sleepChan)
			break L
		case ev := <-sub.Events:
			if ev == nil {
				//a closed subscription also drains Events as nil, so check
				//for a teardown before treating this as a lost connection
				cancel()
				if stopping(stop) {
					relay.Close()
					break L
				}
				actors.LogCLI("lost connection to "+url, 3)
				filter.Since = &lastEventTime
				go subscribeToRelay(url, filter, eventChan, signalEose, stop, sleepChan)
				break L
			}
			lastEventTime = nostr.Now()
			eventChan <- *ev
		case <-stop:
			sub.Unsub()
			relay.Close()
			break L
		case <-actors.GetTerminateChan():
			sub.Unsub()
			relay.Close()
			break L
		}
	}
}

// stopping reports whether the session or the whole engine is tearing down.
func stopping(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-actors.GetTerminateChan():
		return true
	default:
		return false
	}
}

func retryLater(url library.RelayURL, filter nostr.Filter, eventChan chan nostr.Event, signalEose func(), stop chan struct{}, sleepChan chan bool) {
	select {
	case <-stop:
	case <-actors.GetTerminateChan():
	case <-time.After(time.Second * 30):
		go subscribeToRelay(url, filter, eventChan, signalEose, stop, sleepChan)
	}
}
