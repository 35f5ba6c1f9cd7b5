package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/toolbelt/internal/cli"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	var closeLog func() error
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)

		var err error
		if closeLog, err = cli.SetupLogging(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		}
	})

	// Execute command
	err := rootCmd.ExecuteContext(context.Background())
	if closeLog != nil {
		closeLog()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
