package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const version = "0.2.0"

var (
	versionNameColor = color.New(color.FgCyan, color.Bold)
	versionNumColor  = color.New(color.FgGreen, color.Bold)
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rook version",
	Run: func(cmd *cobra.Command, args []string) {
		color.NoColor = !colorEnabled(cmd)
		fmt.Printf("%s %s\n", versionNameColor.Sprint("rook"), versionNumColor.Sprint(version))
	},
}
