package main

import "github.com/johnyburd/autbot/internal/cli"

func main() {
	cli.Execute()
}
