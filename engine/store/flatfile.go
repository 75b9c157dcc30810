package store

import (
	"bytes"
	"io"
	"os"

	"sealbox/engine/actors"
	"sealbox/engine/library"
)

type flatFileBackend struct{}

func (flatFileBackend) Load(namespace string) ([]byte, bool) {
	if err := os.MkdirAll(directory(), 0777); err != nil {
		library.LogCLI(err.Error(), 0)
	}
	_, err := os.Stat(directory() + namespace + ".dat")
	if os.IsNotExist(err) {
		return nil, false
	}
	b, err := os.ReadFile(directory() + namespace + ".dat")
	if err != nil {
		library.LogCLI(err.Error(), 0)
		return nil, false //IDE helper
	}
	return b, true
}

func (flatFileBackend) Save(namespace string, b []byte) {
	os.Remove(directory() + namespace + ".dat")
	if err := os.MkdirAll(directory(), 0777); err != nil {
		library.LogCLI(err.Error(), 0)
	}
	f, err := os.Create(directory() + namespace + ".dat")
	if err != nil {
		library.LogCLI(err.Error(), 0)
		return //IDE helper
	}
	defer f.Close()
	_, err = io.Copy(f, bytes.NewReader(b))
	if err != nil {
		library.LogCLI(err.Error(), 0)
		return //IDE helper
	}
}

func directory() string {
	dir := actors.MakeOrGetConfig().GetString("rootDir")
	dir = dir + actors.MakeOrGetConfig().GetString("flatFileDir")
	return dir
}
