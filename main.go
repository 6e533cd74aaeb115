// The main package for the progress-service executable.
package main

import "github.com/JakeFAU/progress-service/cmd"

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
