package main

import "github.com/merchstats/reportgate/cmd"

func main() {
	cmd.Execute()
}
