package main

import "github.com/lumisproject/digital-twin-project-oracle/cmd"

func main() {
	cmd.Execute()
}
