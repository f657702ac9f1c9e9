package assets

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/core"
	"github.com/spaghettifunk/scop/engine/resources"
)

var validSPIRV = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x03, 0x01, 0x00}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetermineAssetType(t *testing.T) {
	tests := map[string]resources.ResourceType{
		"shaders/shader.vert.spv": resources.ResourceTypeShader,
		"shader.vert.wgsl":        resources.ResourceTypeText,
		"shader.frag":             resources.ResourceTypeText,
		"data.bin":                resources.ResourceTypeBinary,
		"readme.md":               resources.ResourceTypeNone,
	}
	for path, want := range tests {
		if got := determineAssetType(path); got != want {
			t.Errorf("determineAssetType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestInitializeIndexesKnownFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shader.vert.spv"), validSPIRV)
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))

	am := NewAssetManager()
	if err := am.Initialize(dir, false); err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()

	if _, ok := am.Lookup(filepath.Join(am.Root(), "shader.vert.spv")); !ok {
		t.Error("compiled shader was not indexed")
	}
	if _, ok := am.Lookup(filepath.Join(am.Root(), "notes.txt")); ok {
		t.Error("unknown file type was indexed")
	}
}

func TestLoadShader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shader.vert.spv"), validSPIRV)
	writeFile(t, filepath.Join(dir, "broken.frag.spv"), validSPIRV[:5])

	am := NewAssetManager()
	if err := am.Initialize(dir, false); err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()

	code, err := am.LoadShader("shader.vert.spv")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 2 {
		t.Fatalf("got %d words, want 2", len(code))
	}
	info, ok := am.Lookup(filepath.Join(am.Root(), "shader.vert.spv"))
	if !ok || info.LastLoaded.IsZero() {
		t.Error("load time was not recorded")
	}

	if _, err := am.LoadShader("broken.frag.spv"); !errors.Is(err, core.ErrAlignment) {
		t.Errorf("err = %v, want ErrAlignment", err)
	}
	if _, err := am.LoadShader("shader.vert.wgsl"); err == nil {
		t.Error("expected an error for a shader source")
	}
	if _, err := am.LoadShader("missing.spv"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestWatcherFiresShadersChanged(t *testing.T) {
	dir := t.TempDir()
	core.EventSystemInitialize()
	if err := core.EventSystemShutdown(); err != nil {
		t.Fatal(err)
	}
	core.ProcessEvents()

	var changed []string
	core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, func(context core.EventContext) {
		changed = append(changed, context.Data.(string))
	})

	am := NewAssetManager()
	if err := am.Initialize(dir, true); err != nil {
		t.Fatal(err)
	}
	defer am.Shutdown()

	target := filepath.Join(am.Root(), "shader.frag.spv")
	writeFile(t, filepath.Join(dir, "ignored.txt"), []byte("x"))
	writeFile(t, target, validSPIRV)

	deadline := time.Now().Add(5 * time.Second)
	for len(changed) == 0 && time.Now().Before(deadline) {
		core.ProcessEvents()
		time.Sleep(10 * time.Millisecond)
	}
	if len(changed) == 0 {
		t.Fatal("no EVENT_CODE_SHADERS_CHANGED within 5s")
	}
	for _, p := range changed {
		if p != target {
			t.Errorf("event for %q, want only %q", p, target)
		}
	}
}

func TestWatchErrorLoggedVerbatim(t *testing.T) {
	var buf bytes.Buffer
	core.LogSetOutput(&buf)
	defer core.LogSetOutput(os.Stderr)

	NewAssetManager().handleWatchError(errors.New("inotify: 100% of watches in use"))

	out := buf.String()
	if !strings.Contains(out, "asset watcher: inotify: 100% of watches in use") {
		t.Errorf("logged %q", out)
	}
	if strings.Contains(out, "%!") {
		t.Errorf("error text was used as a format string: %q", out)
	}
}
