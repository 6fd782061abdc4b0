package main

import "github.com/mcoot/teamdraw/internal/cli"

func main() {
	cli.Execute()
}
