package main

import "github.com/kiesman99/tilex/cmd"

func main() {
	cmd.Execute()
}
