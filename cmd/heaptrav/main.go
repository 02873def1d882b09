// ABOUTME: Entry point of the heaptrav command line tool
// ABOUTME: All commands live in the cmd package

package main

import "github.com/prateek/heaptrav/cmd/heaptrav/cmd"

func main() {
	cmd.Execute()
}
