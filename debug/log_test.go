package debug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnableAtWritesCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	if err := EnableAt(path); err != nil {
		t.Fatalf("EnableAt: %v", err)
	}
	defer Disable()

	Log("dispatch", "tick=%d", 96)
	Logger("player").Debug("completed", "played", 3)
	for i := 0; i < 4; i++ {
		LogEvery(2, "lag", "late")
	}
	Disable()
	Log("dispatch", "after disable")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	for _, want := range []string{"Debug logging started", "tick=96", "cat=dispatch", "player", "played=3", "count=4"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug log missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "after disable") {
		t.Errorf("message logged after Disable:\n%s", out)
	}
}

func TestLogWhileDisabled(t *testing.T) {
	Disable()
	Log("x", "dropped %d", 1)
	if Enabled() {
		t.Errorf("Enabled() after Disable")
	}
}
