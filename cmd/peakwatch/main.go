package main

import (
	"fmt"
	"os"

	"golang.hedera.com/solo-peakwatch/cmd/peakwatch/commands"
)

func main() {

	err := commands.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
