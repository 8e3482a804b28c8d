// Command betree is a small harness for exercising and inspecting a B^ε
// tree from the command line: bench drives synthetic load through one,
// inspect builds a small in-memory one and prints its shape.
package main

import "github.com/wkalt/betree/cmd/betree/cmd"

func main() {
	cmd.Execute()
}
