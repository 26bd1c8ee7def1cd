package main

import "github.com/vietddude/callcore/internal/cli"

func main() {
	cli.Execute()
}
