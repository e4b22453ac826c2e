package main

import "github.com/ppiankov/promptarmor/internal/cli"

func main() {
	cli.Execute()
}
