package main

import "github.com/novasocial/nova-consistency/cmd"

func main() {
	cmd.Execute()
}
