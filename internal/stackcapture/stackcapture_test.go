package stackcapture

import "testing"

func TestCaptureResolvesSymbols(t *testing.T) {
	frames := captureHelper()
	if len(frames) == 0 {
		t.Fatal("expected at least one frame")
	}
	if frames[0].Function == "" {
		t.Error("expected resolved function name on top frame")
	}
}

func captureHelper() []Frame {
	return Capture(DefaultConfig())
}

func TestCaptureWithoutSymbolsPopulatesAddressOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResolveSymbols = false
	frames := Capture(cfg)
	if len(frames) == 0 {
		t.Fatal("expected at least one frame")
	}
	for _, f := range frames {
		if f.Address == 0 {
			t.Error("expected nonzero address")
		}
		if f.Function != "" || f.File != "" {
			t.Error("expected no symbol info when ResolveSymbols is false")
		}
	}
}

func TestCaptureZeroDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 0
	if frames := Capture(cfg); frames != nil {
		t.Errorf("expected nil for MaxDepth 0, got %d frames", len(frames))
	}
}

func TestToEventFrames(t *testing.T) {
	frames := []Frame{{Address: 1, Function: "f", File: "f.go", Line: 10}}
	out := ToEventFrames(frames)
	if len(out) != 1 || out[0].Function != "f" || out[0].Line != 10 {
		t.Fatalf("unexpected conversion result: %+v", out)
	}
	if ToEventFrames(nil) != nil {
		t.Error("expected nil passthrough")
	}
}
