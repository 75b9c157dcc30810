package actors

import (
	"sync"

	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/library"
)

var terminateChan = make(chan struct{})
var terminateMutex = &deadlock.Mutex{}
var terminated bool

var waitGroup = &sync.WaitGroup{}

func SetTerminateChan(term chan struct{}) {
	terminateMutex.Lock()
	defer terminateMutex.Unlock()
	terminateChan = term
	terminated = false
}

func GetTerminateChan() chan struct{} {
	terminateMutex.Lock()
	defer terminateMutex.Unlock()
	return terminateChan
}

func GetWaitGroup() *sync.WaitGroup {
	return waitGroup
}

// Shutdown closes the terminate channel and blocks until every actor that
// registered on the waitgroup has finished its shutdown hook.
func Shutdown() {
	terminateMutex.Lock()
	if !terminated {
		terminated = true
		close(terminateChan)
	}
	terminateMutex.Unlock()
	waitGroup.Wait()
	library.LogCLI("sealbox has shut down", 4)
}

func LogCLI(message interface{}, level int) {
	library.LogCLI(message, level)
}
