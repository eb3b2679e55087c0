package main

import "spendsense/cmd"

func main() {
	cmd.Execute()
}
