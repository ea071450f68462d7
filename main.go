// The main package for the autoblog executable.
package main

import (
	"github.com/JakeFAU/autoblog/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
