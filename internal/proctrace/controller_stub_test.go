//go:build !(linux && amd64)

package proctrace

import (
	"testing"

	"github.com/tracesmith/tracesmith/internal/errorutil"
)

func TestStubControllerReportsUnsupported(t *testing.T) {
	c := New()
	if c.IsAttached() {
		t.Fatal("stub controller should never report attached")
	}
	if err := c.Attach(1); err != errorutil.ErrUnsupportedPlatform {
		t.Fatalf("Attach() = %v, want ErrUnsupportedPlatform", err)
	}
	if err := c.Spawn([]string{"/bin/true"}); err != errorutil.ErrUnsupportedPlatform {
		t.Fatalf("Spawn() = %v, want ErrUnsupportedPlatform", err)
	}
	if _, err := c.SetBreakpoint(0x1000); err != errorutil.ErrUnsupportedPlatform {
		t.Fatalf("SetBreakpoint() = %v, want ErrUnsupportedPlatform", err)
	}
}
