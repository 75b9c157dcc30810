package main

import (
	"fmt"

	"github.com/spf13/viper"
	"sealbox/engine/actors"
	"sealbox/engine/library"
	"sealbox/messaging/eventconductor"
	"sealbox/protocol/giftwrap"
)

func main() {
	conf := viper.New()
	//Now we initialise this configuration with basic settings that are required on startup.
	actors.InitConfig(conf)
	//make the config accessible globally
	actors.SetConfig(conf)
	fmt.Println("Current wallet: " + actors.MyWallet().Account)
	signer, err := giftwrap.NewRawKeySigner(actors.MyWallet().PrivateKey)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		return
	}
	if err := eventconductor.Start(signer); err != nil {
		library.LogCLI(err.Error(), 0)
		return
	}
	go cliListener()
	<-actors.GetTerminateChan()
	actors.GetWaitGroup().Wait()
}
