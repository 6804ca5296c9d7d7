// Package main provides the stepper command, which runs simulations described
// by a configuration file and Lua modules.
package main

import "github.com/sarchlab/stepper/stepper/cmd"

func main() {
	cmd.Execute()
}
