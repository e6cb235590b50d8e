package main

import "github.com/liamg/vulnscan/cmd"

func main() {
	cmd.Execute()
}
