package engine

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/renderer/vulkan"
)

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position.
	X uint32 `toml:"x"`
	Y uint32 `toml:"y"`
	// Window starting size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type RendererConfig struct {
	Validation bool `toml:"validation"`
	// "major.minor", e.g. "1.3".
	APIVersion string `toml:"api_version"`
	// Empty lets the swapchain pick the best supported mode.
	PresentMode string     `toml:"present_mode"`
	ClearColor  [4]float32 `toml:"clear_color"`
}

type ShadersConfig struct {
	Dir       string `toml:"dir"`
	Vertex    string `toml:"vertex"`
	Fragment  string `toml:"fragment"`
	HotReload bool   `toml:"hot_reload"`
}

type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Log      LogConfig      `toml:"log"`
	Renderer RendererConfig `toml:"renderer"`
	Shaders  ShadersConfig  `toml:"shaders"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:   "scop",
			X:      100,
			Y:      100,
			Width:  800,
			Height: 600,
		},
		Log: LogConfig{Level: "info"},
		Renderer: RendererConfig{
			Validation: true,
			APIVersion: "1.3",
			ClearColor: vulkan.DefaultClearColor,
		},
		Shaders: ShadersConfig{
			Dir:       "assets/shaders",
			Vertex:    "shader.vert.spv",
			Fragment:  "shader.frag.spv",
			HotReload: true,
		},
	}
}

// LoadConfig overlays the TOML file at path on the defaults. A missing file
// is not an error.
func LoadConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := ParseConfig(data, cfg); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// ParseConfig decodes data into cfg and validates the result. Unknown keys
// are rejected.
func ParseConfig(data []byte, cfg *ApplicationConfig) error {
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return errors.Wrap(err, "decode config")
	}
	return cfg.Validate()
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Renderer.PresentMode != "" {
		if _, ok := vulkan.PresentModeFromName(c.Renderer.PresentMode); !ok {
			return errors.Errorf("unknown present mode %q", c.Renderer.PresentMode)
		}
	}
	if _, err := ParseAPIVersion(c.Renderer.APIVersion); err != nil {
		return err
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return errors.New("both shader stages must be named")
	}
	return nil
}

// ParseAPIVersion turns "1.3" into a packed Vulkan version.
func ParseAPIVersion(s string) (uint32, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return 0, errors.Errorf("api version %q is not major.minor", s)
	}
	ma, err := strconv.Atoi(major)
	if err != nil || ma != 1 {
		return 0, errors.Errorf("api version %q: only Vulkan 1.x is supported", s)
	}
	mi, err := strconv.Atoi(minor)
	if err != nil || mi < 0 {
		return 0, errors.Errorf("api version %q: bad minor version", s)
	}
	return uint32(vk.MakeVersion(ma, mi, 0)), nil
}

// VulkanConfig converts the file level settings into what the backend needs.
func (c *ApplicationConfig) VulkanConfig() (vulkan.RendererConfig, error) {
	api, err := ParseAPIVersion(c.Renderer.APIVersion)
	if err != nil {
		return vulkan.RendererConfig{}, err
	}
	return vulkan.RendererConfig{
		ApplicationName: c.Window.Name,
		ApiVersion:      api,
		Validation:      c.Renderer.Validation,
		PresentMode:     c.Renderer.PresentMode,
		ClearColor:      c.Renderer.ClearColor,
		VertexShader:    c.Shaders.Vertex,
		FragmentShader:  c.Shaders.Fragment,
	}, nil
}
