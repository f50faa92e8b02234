package main

import (
	"keyfort/cmd"
)

func main() {
	cmd.Execute()
}
