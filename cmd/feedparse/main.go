package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/feedparse/app/cfg"
)

func main() {
	parser := newCLI(os.Stdin, os.Stdout)

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return
		}
		fmt.Fprintf(os.Stderr, "feedparse %s: %v\n", cfg.GetVersion(), err)
		os.Exit(1)
	}
}
