package main

import "github.com/seq2func/seq2func/cli"

func main() {
	cli.Execute()
}
