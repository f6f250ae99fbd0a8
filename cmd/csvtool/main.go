// Package main is the csvtool command-line entry point: parse, convert,
// validate, load, and serve CSV-family documents against the tablecsv
// library.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
