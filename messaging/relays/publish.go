package relays

import (
	"context"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"sealbox/engine/actors"
	"sealbox/engine/library"
)

// PublishToRelay sends the given signed events to one relay and settles the
// returned channel exactly once: nil when the relay accepted all of them, the
// first error otherwise. Callers race this against their own timeout.
func PublishToRelay(url library.RelayURL, events []nostr.Event) chan error {
	result := make(chan error, 1)
	go func() {
		if actors.MakeOrGetConfig().GetBool("doNotPublish") {
			result <- nil
			return
		}
		sane := library.ValidateSaneExecutionTime()
		defer sane()
		relay, err := nostr.RelayConnect(context.Background(), url)
		if err != nil {
			actors.LogCLI(fmt.Sprintf("could not connect to relay %s: %s", url, err), 2)
			result <- err
			return
		}
		defer relay.Close()
		for _, event := range events {
			if err := relay.Publish(context.Background(), event); err != nil {
				actors.LogCLI(fmt.Sprintf("could not publish to relay %s: %s", url, err), 2)
				result <- err
				return
			}
		}
		result <- nil
	}()
	return result
}
