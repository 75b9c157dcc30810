package main

import (
	"fmt"

	"github.com/eiannone/keyboard"
	"sealbox/engine/actors"
	"sealbox/messaging/eventconductor"
	"sealbox/state/conversations"
)

func cliListener() {
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			panic(err)
		}
		str := string(r)
		switch str {
		default:
			if k == 13 {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to anything. See main.cliListener for more details.")
		case "c":
			for id, conversation := range conversations.GetMap() {
				fmt.Printf("%s: %d messages, %d unread\n", id, len(conversation.Messages), conversation.Unread)
			}
		case "m":
			conversations.MarkAllAsRead()
			fmt.Println("marked everything as read")
		case "r":
			if record := eventconductor.LastSend(); record != nil {
				record.Retry(nil)
				fmt.Println("retrying " + record.RumorID)
			}
		case "q":
			eventconductor.Stop()
			actors.Shutdown()
			return
		}
	}
}
