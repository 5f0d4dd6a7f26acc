package main

import "github.com/icco/videoseq/cmd"

func main() {
	cmd.Execute()
}
