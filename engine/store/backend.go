package store

import (
	"github.com/sasha-s/go-deadlock"
	"sealbox/engine/actors"
)

// Backend is an embedded key-value store with one blob per namespace. Each
// namespace has a single writer, so backends don't need their own locking
// beyond what the client library provides.
type Backend interface {
	Load(namespace string) ([]byte, bool)
	Save(namespace string, b []byte)
}

var current Backend
var currentMutex = &deadlock.Mutex{}

// Current returns the configured persistence backend, falling back to flat
// files when redis is configured but unreachable.
func Current() Backend {
	currentMutex.Lock()
	defer currentMutex.Unlock()
	if current == nil {
		switch actors.MakeOrGetConfig().GetString("cacheBackend") {
		case "redis":
			r, err := newRedisBackend(actors.MakeOrGetConfig().GetString("redisURL"))
			if err != nil {
				actors.LogCLI("redis backend unavailable, using flat files: "+err.Error(), 2)
				current = flatFileBackend{}
				break
			}
			current = r
		default:
			current = flatFileBackend{}
		}
	}
	return current
}

func SetBackend(b Backend) {
	currentMutex.Lock()
	defer currentMutex.Unlock()
	current = b
}
