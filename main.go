package main

import "github.com/mpapenbr/livetiming-feed-go/cmd"

func main() {
	cmd.Execute()
}
