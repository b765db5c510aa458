package main

import "github.com/pgEdge/modmigrate/cmd"

func main() {
	cmd.Execute()
}
