package main

import "github.com/kozaktomas/photo-search/cmd"

func main() {
	cmd.Execute()
}
