package main

import "github.com/stepwisehq/stepwise/cmd"

func main() {
	cmd.Execute()
}
