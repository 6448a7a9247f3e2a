package main

import (
	"os"

	"voicevault-gateway/internal/cli"
)

func main() {
	runner := cli.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
