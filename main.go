package main

import "github.com/iksnae/aichat/cmd"

func main() {
	cmd.Execute()
}
