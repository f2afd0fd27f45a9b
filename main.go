package main

import "github.com/Norgate-AV/vsmeta/cmd"

func main() {
	cmd.Execute()
}
