package main

import "github.com/geocoder89/eventloop/cmd/eventloopctl/cmd"

func main() {
	cmd.Execute()
}
