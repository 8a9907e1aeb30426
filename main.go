package main

import "github.com/jarvis-assistant/jarvis/cmd"

func main() {
	cmd.Execute()
}
