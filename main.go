package main

import "agentmem/cmd"

func main() {
	cmd.Execute()
}
