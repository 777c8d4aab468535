//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Seeds the demo library and starts the reload loop.
func (Run) Demo() error {
	fmt.Println("Run demo...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "patina.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
