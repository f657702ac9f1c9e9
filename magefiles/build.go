//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// Compiles the WGSL shaders under assets/shaders to SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the scop binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/scop", "."), withStream())
	return err
}

func buildShaders() error {
	_, err := executeCmd("go", withArgs("run", "./cmd/shaderc", "-dir", shaderDir), withStream())
	return err
}
