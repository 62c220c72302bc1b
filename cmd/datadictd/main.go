// Command datadictd runs the dataset catalog daemon: the HTTP surface
// (C5) and the Pub/Sub ingest loop (C3) over a shared catalog store (C1).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
