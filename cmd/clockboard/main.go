package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/phillip-england/clockboard/internal/clockboardcli"
)

func main() {
	if err := clockboardcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, clockboardcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			clockboardcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "clockboard:", err)
		os.Exit(1)
	}
}
