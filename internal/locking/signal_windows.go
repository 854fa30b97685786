//go:build windows

package locking

import "os"

// syscallSignal0 has no Windows equivalent; ProcessAlive degrades to
// "FindProcess succeeded" on this platform.
var syscallSignal0 = os.Interrupt
