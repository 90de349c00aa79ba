package main

import "github.com/rickgao/topicrelay/cmd/topicrelay/cmd"

func main() {
	cmd.Execute()
}
