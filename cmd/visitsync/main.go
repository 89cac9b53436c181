package main

import "github.com/example/visitsync/cmd"

func main() {
	cmd.Execute()
}
