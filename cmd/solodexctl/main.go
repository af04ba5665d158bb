package main

import "github.com/okian/solodex/internal/cli"

func main() {
	cli.Execute()
}
