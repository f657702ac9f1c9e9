package engine

import (
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := DefaultApplicationConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	rc, err := cfg.VulkanConfig()
	if err != nil {
		t.Fatal(err)
	}
	if rc.ApiVersion != uint32(vk.MakeVersion(1, 3, 0)) {
		t.Errorf("api = %#x, want 1.3", rc.ApiVersion)
	}
	if rc.ClearColor != [4]float32{0, 0, 0.8, 1} {
		t.Errorf("clear colour = %v", rc.ClearColor)
	}
	if rc.VertexShader != "shader.vert.spv" || rc.FragmentShader != "shader.frag.spv" {
		t.Errorf("shaders = %q %q", rc.VertexShader, rc.FragmentShader)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scop.toml")
	data := `
[window]
width = 1280

[renderer]
present_mode = "mailbox"
clear_color = [1.0, 0.0, 0.0, 1.0]

[shaders]
hot_reload = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Width != 1280 || cfg.Window.Height != 600 {
		t.Errorf("window = %dx%d, want 1280x600", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Renderer.PresentMode != "mailbox" || cfg.Renderer.ClearColor[0] != 1 {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
	if cfg.Shaders.HotReload || cfg.Shaders.Vertex != "shader.vert.spv" {
		t.Errorf("shaders = %+v", cfg.Shaders)
	}
}

func TestParseConfigRejects(t *testing.T) {
	tests := map[string]string{
		"zero height":      "[window]\nheight = 0\n",
		"present mode":     "[renderer]\npresent_mode = \"vsync\"\n",
		"log level":        "[log]\nlevel = \"loud\"\n",
		"api version":      "[renderer]\napi_version = \"2.0\"\n",
		"unknown key":      "[window]\ntitle = \"x\"\n",
		"missing fragment": "[shaders]\nfragment = \"\"\n",
		"not toml":         "[window\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if err := ParseConfig([]byte(data), DefaultApplicationConfig()); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseAPIVersion(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"1.0", uint32(vk.MakeVersion(1, 0, 0)), true},
		{"1.3", uint32(vk.MakeVersion(1, 3, 0)), true},
		{"1", 0, false},
		{"1.x", 0, false},
		{"2.1", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseAPIVersion(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseAPIVersion(%q) = %#x, %v", tt.in, got, err)
		}
	}
}
