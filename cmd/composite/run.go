package main

import (
	"fmt"
	"os"

	"github.com/TIANLI0/CompositeKit/config"
	"github.com/TIANLI0/CompositeKit/model"
	"github.com/TIANLI0/CompositeKit/service"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Composite two image files and write the result",
		RunE:  runComposite,
	}

	cmd.Flags().StringP("background", "b", "", "Product image file drawn under the overlay")
	cmd.Flags().StringP("overlay", "l", "", "Overlay image file; its size sets the canvas size")
	cmd.Flags().StringP("output", "o", "result.png", "Output file")
	cmd.Flags().String("resampler", "lanczos", "Resize filter")
	addOptionFlags(cmd)
	cmd.MarkFlagRequired("background")
	cmd.MarkFlagRequired("overlay")
	return cmd
}

func runComposite(cmd *cobra.Command, args []string) error {
	backgroundPath, _ := cmd.Flags().GetString("background")
	overlayPath, _ := cmd.Flags().GetString("overlay")
	outputPath, _ := cmd.Flags().GetString("output")
	resampler, _ := cmd.Flags().GetString("resampler")

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	if err := model.ValidateOptions(opts); err != nil {
		return err
	}

	background, err := readFile(backgroundPath)
	if err != nil {
		return err
	}
	overlay, err := readFile(overlayPath)
	if err != nil {
		return err
	}

	req, err := model.NewCompositeRequest(background, overlay, opts)
	if err != nil {
		return err
	}

	compositorCfg := config.Default().Compositor
	compositorCfg.Resampler = resampler
	compositorCfg.MaxConcurrent = 1
	compositorCfg.QueueTimeout = 0

	compositor, err := service.NewCompositeService(&compositorCfg)
	if err != nil {
		return err
	}

	result, err := compositor.Composite(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("compositing: %w", err)
	}

	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Composited %dx%d (%s)\n", result.Width, result.Height, result.ContentType)
	fmt.Fprintf(out, "Product: %dx%d at (%d, %d)\n", result.Product.Width, result.Product.Height, result.Product.X, result.Product.Y)
	fmt.Fprintf(out, "Output:  %s (%d bytes)\n", outputPath, len(result.Data))
	return nil
}
