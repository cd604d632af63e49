package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/relpack/cmd/relpack"
	"github.com/arthur-debert/relpack/pkg/errors"
)

func main() {
	rootCmd := relpack.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errors.ExitCode(err))
	}
}
