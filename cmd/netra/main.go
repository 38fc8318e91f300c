package main

import "github.com/0xcro3dile/netra-go/internal/cli"

func main() {
	cli.Execute()
}
