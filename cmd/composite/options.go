package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TIANLI0/CompositeKit/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func addOptionFlags(cmd *cobra.Command) {
	cmd.Flags().String("options", "", "Options file (YAML or JSON)")
	cmd.Flags().String("bg-color", "", "Background color as r,g,b,a (0-255 each)")
	cmd.Flags().String("resize", "", "Resize mode: width:N, height:N or scale:F")
	cmd.Flags().String("offset", "", "Offset mode: pixel:X,Y, percent:X,Y or center")
	cmd.Flags().String("format", "", "Output format (png, jpeg)")
	cmd.Flags().Int("quality", 0, "JPEG quality (1-100)")
}

// loadOptions 读取参数文件，命令行参数覆盖文件中的值
func loadOptions(cmd *cobra.Command) (model.CompositeOptions, error) {
	var opts model.CompositeOptions

	path, _ := cmd.Flags().GetString("options")
	if path != "" {
		data, err := readFile(path)
		if err != nil {
			return opts, fmt.Errorf("reading options: %w", err)
		}
		if err := decodeOptions(path, data, &opts); err != nil {
			return opts, fmt.Errorf("%w: parsing %s: %v", model.ErrInvalidConfiguration, path, err)
		}
	}

	if s, _ := cmd.Flags().GetString("bg-color"); s != "" {
		c, err := parseColorFlag(s)
		if err != nil {
			return opts, err
		}
		opts.BackgroundColor = c
	}

	if s, _ := cmd.Flags().GetString("resize"); s != "" {
		spec, err := model.ParseModeFlag(s)
		if err != nil {
			return opts, err
		}
		opts.ResizeMode = spec
	}

	if s, _ := cmd.Flags().GetString("offset"); s != "" {
		spec, err := model.ParseModeFlag(s)
		if err != nil {
			return opts, err
		}
		opts.OffsetMode = spec
	}

	if s, _ := cmd.Flags().GetString("format"); s != "" {
		opts.OutputFormat = s
	}
	if q, _ := cmd.Flags().GetInt("quality"); q != 0 {
		opts.JPEGQuality = q
	}

	return opts, nil
}

func decodeOptions(path string, data []byte, opts *model.CompositeOptions) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, opts)
	}
	return yaml.Unmarshal(data, opts)
}

func parseColorFlag(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	c := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: bad color component %q", model.ErrInvalidConfiguration, p)
		}
		c = append(c, v)
	}
	return c, nil
}

// readFile 读取输入文件，路径不存在时返回 ErrFileNotFound
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", model.ErrFileNotFound, path, err)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
