//go:build unix

package locking

import "syscall"

// syscallSignal0 is the null signal: delivering it only checks that the
// process exists and the caller has permission to signal it, without
// actually affecting the process. Windows has no equivalent; ProcessAlive
// on Windows always reports true for an os.FindProcess success instead
// (see signal_windows.go), which is a known platform caveat shared with
// the runCommand tool's SIGTERM-only cancellation.
const syscallSignal0 = syscall.Signal(0)
