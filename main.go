// Package main is the entry point for the tactix application
package main

import "github.com/ethpandaops/tactix/cmd"

func main() {
	cmd.Execute()
}
