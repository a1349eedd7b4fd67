package main

import "github.com/sanosuguru/go-seat-reservation/internal/cli"

func main() {
	cli.Execute()
}
