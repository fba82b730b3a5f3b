package harness

import (
	"runtime"
	"testing"
)

func TestProcessMemoryMB(t *testing.T) {
	got := processMemoryMB()
	if got <= 0 {
		t.Fatalf("processMemoryMB() = %v, want > 0", got)
	}
	if got > 1<<20 {
		t.Errorf("processMemoryMB() = %v MB, implausibly large", got)
	}
}

func TestReadVmRSS(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("procfs only on linux")
	}

	kb, ok := readVmRSSKb()
	if !ok {
		t.Fatal("expected VmRSS to be readable on linux")
	}
	if kb <= 0 {
		t.Errorf("VmRSS = %d kB, want > 0", kb)
	}
}
