package main

import "github.com/spigell/prep-brief/cmd"

func main() {
	cmd.Execute()
}
