package main

import "linkcal/cmd/linkcal-cli/cmd"

func main() {
	cmd.Execute()
}
