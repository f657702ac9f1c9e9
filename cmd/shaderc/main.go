// Command shaderc compiles every WGSL file in a directory to SPIR-V.
//
//	shaderc -dir assets/shaders
//
// shader.vert.wgsl becomes shader.vert.spv next to it. Each output is checked
// the same way the engine checks it at load time.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/assets/loaders"
	"github.com/spaghettifunk/scop/engine/core"
)

type compileFunc func(source string) ([]byte, error)

type compiler struct {
	compile compileFunc
	// Compile and check only.
	dryRun bool
	// Vertex shaders that leave PointSize unwritten.
	missingPointSize []string
}

func main() {
	dir := flag.String("dir", "assets/shaders", "directory holding *.wgsl sources")
	dryRun := flag.Bool("n", false, "compile and check without writing .spv files")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		_ = core.LogSetLevel("debug")
	}

	c := &compiler{compile: naga.Compile, dryRun: *dryRun}
	outputs, err := c.compileDir(*dir)
	if err != nil {
		core.LogFatal("%v", err)
	}
	core.LogInfo("Compiled %d shader(s) in %s.", len(outputs), *dir)
}

func isVertexShader(source string) bool {
	return strings.HasSuffix(source, ".vert.wgsl")
}

func outputPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".spv"
}

// compileDir compiles the sources in sorted order and stops at the first
// failure. It returns the paths written.
func (c *compiler) compileDir(dir string) ([]string, error) {
	sources, err := filepath.Glob(filepath.Join(dir, "*.wgsl"))
	if err != nil {
		return nil, errors.Wrap(err, "list shader sources")
	}
	if len(sources) == 0 {
		return nil, errors.Errorf("no .wgsl files in %s", dir)
	}

	var outputs []string
	for _, src := range sources {
		out, err := c.compileFile(src)
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (c *compiler) compileFile(src string) (string, error) {
	wgsl, err := os.ReadFile(src)
	if err != nil {
		return "", errors.Wrap(err, "read shader source")
	}
	spirv, err := c.compile(string(wgsl))
	if err != nil {
		return "", errors.Wrapf(err, "compile %s", src)
	}
	code, err := loaders.ParseSPIRV(spirv)
	if err != nil {
		return "", errors.Wrapf(err, "%s produced invalid SPIR-V", src)
	}

	if isVertexShader(src) && !loaders.WritesPointSize(code) {
		// Point list pipelines then rely on maintenance5 for a default size.
		core.LogWarn("%s does not write PointSize; validation may report VUID-VkGraphicsPipelineCreateInfo-topology-08773", src)
		c.missingPointSize = append(c.missingPointSize, src)
	}

	out := outputPath(src)
	core.LogDebug("%s -> %s (%d words)", src, out, len(code))
	if c.dryRun {
		return out, nil
	}
	if err := os.WriteFile(out, spirv, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", out)
	}
	return out, nil
}
