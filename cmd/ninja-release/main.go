package main

import "github.com/oshokin/ninja-release/cmd/ninja-release/cmd"

func main() {
	cmd.Execute()
}
