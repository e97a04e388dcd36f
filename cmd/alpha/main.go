package main

import "github.com/jmehdipour/saga-coordinator/cmd"

func main() {
	cmd.Execute()
}
