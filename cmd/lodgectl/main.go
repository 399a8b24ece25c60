package main

import "karoo_lodge/cmd/lodgectl/commands"

func main() {
	commands.Execute()
}
