package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/scop/engine/assets/loaders"
	"github.com/spaghettifunk/scop/engine/core"
)

var minimalSPIRV = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func fixedCompile(out []byte, err error) compileFunc {
	return func(string) ([]byte, error) { return out, err }
}

func writeSource(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("@fragment fn main() {}"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath("assets/shaders/shader.vert.wgsl"); got != "assets/shaders/shader.vert.spv" {
		t.Errorf("got %q", got)
	}
}

func TestCompileDirWritesSPIRV(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "shader.vert.wgsl")
	writeSource(t, dir, "shader.frag.wgsl")

	c := &compiler{compile: fixedCompile(minimalSPIRV, nil)}
	outputs, err := c.compileDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(outputs) != 2 {
		t.Fatalf("outputs = %v", outputs)
	}
	for _, out := range outputs {
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := loaders.ParseSPIRV(data); err != nil {
			t.Errorf("%s: %v", out, err)
		}
	}
}

func TestCompileDirDryRun(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "shader.frag.wgsl")

	c := &compiler{compile: fixedCompile(minimalSPIRV, nil), dryRun: true}
	if _, err := c.compileDir(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "shader.frag.spv")); !os.IsNotExist(err) {
		t.Errorf("dry run wrote output: %v", err)
	}
}

func TestCompileDirRejectsMisalignedOutput(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "shader.frag.wgsl")

	c := &compiler{compile: fixedCompile(minimalSPIRV[:5], nil)}
	_, err := c.compileDir(dir)
	if !errors.Is(err, core.ErrAlignment) {
		t.Fatalf("err = %v, want ErrAlignment", err)
	}
}

func TestCompileDirErrors(t *testing.T) {
	c := &compiler{compile: fixedCompile(nil, errors.New("unexpected token"))}
	if _, err := c.compileDir(t.TempDir()); err == nil {
		t.Error("an empty directory must fail")
	}

	dir := t.TempDir()
	writeSource(t, dir, "shader.vert.wgsl")
	if _, err := c.compileDir(dir); err == nil {
		t.Error("a compiler error must be returned")
	}
}

func TestCompileDirFlagsVertexWithoutPointSize(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "shader.vert.wgsl")
	writeSource(t, dir, "shader.frag.wgsl")

	c := &compiler{compile: fixedCompile(minimalSPIRV, nil), dryRun: true}
	if _, err := c.compileDir(dir); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "shader.vert.wgsl")
	if len(c.missingPointSize) != 1 || c.missingPointSize[0] != want {
		t.Errorf("missingPointSize = %v, want [%s]", c.missingPointSize, want)
	}
}

func TestIsVertexShader(t *testing.T) {
	if !isVertexShader("assets/shaders/shader.vert.wgsl") {
		t.Error("vertex source not recognised")
	}
	if isVertexShader("assets/shaders/shader.frag.wgsl") {
		t.Error("fragment source taken for vertex")
	}
}
