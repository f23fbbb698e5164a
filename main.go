package main

import "github.com/sw33tLie/matchfeed/cmd"

func main() {
	cmd.Execute()
}
