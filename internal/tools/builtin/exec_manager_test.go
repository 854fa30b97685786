package builtin

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunSyncSendsSIGTERMOnTimeout(t *testing.T) {
	mgr := NewExecManager(nil)
	result, err := mgr.RunSync(context.Background(), "trap 'echo caught; exit 0' TERM; sleep 5", "", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if !strings.Contains(result.Stdout, "caught") {
		t.Fatalf("stdout = %q, want the TERM trap to have fired", result.Stdout)
	}
}

func TestLimitedBufferAppendsTruncationMarker(t *testing.T) {
	b := newLimitedBuffer(8)
	if _, err := b.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := b.String()
	if !strings.HasPrefix(got, "01234567") {
		t.Fatalf("buffer = %q, want it to start with the first 8 bytes", got)
	}
	if !strings.HasSuffix(got, truncatedMarker) {
		t.Fatalf("buffer = %q, want it to end with %q", got, truncatedMarker)
	}
}

func TestLimitedBufferAppendsMarkerOnceAcrossMultipleWrites(t *testing.T) {
	b := newLimitedBuffer(4)
	b.Write([]byte("ab"))
	b.Write([]byte("cd"))
	b.Write([]byte("ef"))
	got := b.String()
	if strings.Count(got, truncatedMarker) != 1 {
		t.Fatalf("buffer = %q, want the marker exactly once", got)
	}
}
