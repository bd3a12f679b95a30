package main

import "github.com/sicko7947/calcflow/cmd/calcflow/cmd"

func main() {
	cmd.Execute()
}
