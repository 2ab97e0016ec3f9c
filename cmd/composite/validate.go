package main

import (
	"fmt"

	"github.com/TIANLI0/CompositeKit/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check compositing options without reading any image",
		RunE:  runValidate,
	}
	addOptionFlags(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	normalized, err := model.NormalizeOptions(opts)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(normalized)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Options are valid")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
