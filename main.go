// Package main is the entry point for the xcheck CLI.
package main

import "xcheck.dev/pkg/xcheck/cmd"

func main() {
	cmd.Execute()
}
