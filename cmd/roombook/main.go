package main

import "github.com/example/room-booking/cmd"

func main() {
	cmd.Execute()
}
