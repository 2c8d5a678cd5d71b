// The main package for the copygate executable.
package main

import (
	"github.com/JakeFAU/copygate/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
