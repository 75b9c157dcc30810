package relays

import (
	"os"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/viper"
	"sealbox/engine/actors"
)

func TestMain(m *testing.M) {
	conf := viper.New()
	conf.Set("offline", true)
	conf.Set("doNotPublish", true)
	actors.SetConfig(conf)
	os.Exit(m.Run())
}

func TestSubscribeOfflineSignalsEndOfStoredEvents(t *testing.T) {
	eventChan := make(chan nostr.Event)
	eoseChan := make(chan bool)
	stop := make(chan struct{})
	defer close(stop)
	Subscribe([]string{"wss://unreachable.example"}, nostr.Filter{}, eventChan, eoseChan, stop)
	select {
	case <-eoseChan:
	case <-time.After(time.Second):
		t.Fatal("no end-of-stored-events signal without a network")
	}
}

func TestStoppingDetectsSessionTeardown(t *testing.T) {
	stop := make(chan struct{})
	if stopping(stop) {
		t.Error("an open stop channel reads as a teardown")
	}
	close(stop)
	if !stopping(stop) {
		t.Error("a closed stop channel must read as a teardown, not a lost connection")
	}
}

func TestStoppingDetectsEngineShutdown(t *testing.T) {
	terminate := make(chan struct{})
	actors.SetTerminateChan(terminate)
	defer actors.SetTerminateChan(make(chan struct{}))
	stop := make(chan struct{})
	if stopping(stop) {
		t.Error("nothing is shutting down yet")
	}
	close(terminate)
	if !stopping(stop) {
		t.Error("a closed terminate channel must read as a teardown")
	}
}

func TestPublishSuppressionSettlesNil(t *testing.T) {
	events := []nostr.Event{{ID: "wrap-1", Kind: actors.KindGiftWrap}}
	select {
	case err := <-PublishToRelay("wss://unreachable.example", events):
		if err != nil {
			t.Errorf("suppressed publish settled with %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("suppressed publish never settled")
	}
}
