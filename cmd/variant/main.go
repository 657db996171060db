package main

import "github.com/variantlab/variant/internal/cli"

func main() {
	cli.Execute()
}
