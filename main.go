// Package main is the entry point for the mend CLI.
package main

import "mend.dev/pkg/mend/cmd"

func main() {
	cmd.Execute()
}
