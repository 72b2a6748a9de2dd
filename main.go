package main

import (
	"fmt"
	"os"

	"github.com/zeu5/dino-rl/benchmarks"
)

// main entry point to the environment commands
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
