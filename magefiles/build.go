//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the demo binary into bin/patina.
func (Build) Binary() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/patina", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the whole test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Tidies the module files.
func (Build) Tidy() error {
	return goTidy()
}
