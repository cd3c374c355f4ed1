// Package main is the entry point for pktsum.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pktsum/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
