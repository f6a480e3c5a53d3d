package main

import (
	"os"

	"github.com/inkhouse/copydesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
