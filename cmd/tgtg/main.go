package main

import "tgtgwatch/cmd/tgtg/commands"

func main() {
	commands.Execute()
}
