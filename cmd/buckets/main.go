package main

import "buckets/internal/cli"

func main() {
	cli.Execute()
}
