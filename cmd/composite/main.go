package main

import (
	"fmt"
	"os"

	"github.com/TIANLI0/CompositeKit/utils"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "composite",
		Short:         "Composite a product image under an overlay on a solid background",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Log compositing details")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		mode := "cli"
		if verbose {
			mode = "debug"
		}
		return utils.InitLogger(mode)
	}

	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func main() {
	defer utils.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		utils.Sync()
		os.Exit(1)
	}
}
