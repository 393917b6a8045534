package main

import "github.com/user/gopro-telemetry/cmd"

func main() {
	cmd.Execute()
}
