//go:build !darwin

package relays

// no sleep detection off darwin
func sleeper(listen chan bool) {}
