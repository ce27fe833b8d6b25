package main

import "github.com/vietddude/lsprobe/internal/cli"

func main() {
	cli.Execute()
}
