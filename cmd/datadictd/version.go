package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nilslice/datadictd/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		fmt.Printf("datadictd %s\n", info.String())
		fmt.Println(info.Full())
		return nil
	},
}
