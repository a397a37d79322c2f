package main

import "github.com/diogo/shopchat/internal/commands"

func main() {
	commands.Execute()
}
