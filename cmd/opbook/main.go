package main

import "github.com/example/op-booking/cmd"

func main() {
	cmd.Execute()
}
