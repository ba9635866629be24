package main

import "github.com/greenloop-app/greenloop/internal/cli"

func main() {
	cli.Execute()
}
