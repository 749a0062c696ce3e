package main

import "github.com/solid-auto/app-blocks/cmd"

func main() {
	cmd.Execute()
}
