// The main package for the sitecrawler executable.
package main

import (
	"os"

	"github.com/JakeFAU/sitecrawler/cmd"
)

// main defers all execution to the Cobra CLI and exits with its status code.
func main() {
	os.Exit(cmd.Execute())
}
