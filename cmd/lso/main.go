package main

import "lastshow/internal/cli"

func main() {
	cli.Execute()
}
