package main

import "github.com/mirrorbay/davserver/cmd"

func main() {
	cmd.Execute()
}
