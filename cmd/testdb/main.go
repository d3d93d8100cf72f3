package main

import (
	"fmt"
	"os"

	"github.com/mathesar-foundation/testdb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "testdb: %v\n", err)
		os.Exit(1)
	}
}
