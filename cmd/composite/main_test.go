package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TIANLI0/CompositeKit/model"
	"github.com/disintegration/imaging"
)

func writePNG(t *testing.T, dir, name string, w, h int, fill color.NRGBA) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := imaging.Save(imaging.New(w, h, fill), path); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunComposite(t *testing.T) {
	dir := t.TempDir()
	background := writePNG(t, dir, "product.png", 10, 10, color.NRGBA{R: 255, A: 255})
	overlay := writePNG(t, dir, "frame.png", 40, 40, color.NRGBA{})
	output := filepath.Join(dir, "out.png")

	out, err := execute(t, "run",
		"-b", background,
		"-l", overlay,
		"-o", output,
		"--bg-color", "0,0,255,255",
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Composited 40x40") {
		t.Errorf("unexpected summary: %q", out)
	}

	img, err := imaging.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != image.Pt(40, 40) {
		t.Fatalf("canvas = %v, want 40x40", got)
	}
	nrgba := imaging.Clone(img)
	if got := nrgba.NRGBAAt(20, 20); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("center pixel = %v, want red", got)
	}
	if got := nrgba.NRGBAAt(0, 0); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("corner pixel = %v, want blue", got)
	}
}

func TestRunMissingFile(t *testing.T) {
	dir := t.TempDir()
	overlay := writePNG(t, dir, "frame.png", 8, 8, color.NRGBA{})

	_, err := execute(t, "run",
		"-b", filepath.Join(dir, "nope.png"),
		"-l", overlay,
		"-o", filepath.Join(dir, "out.png"),
		"--bg-color", "0,0,0,255",
	)
	if !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestRunRejectsOptionsBeforeReadingImages(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.png")

	_, err := execute(t, "run",
		"-b", filepath.Join(dir, "missing-product.png"),
		"-l", filepath.Join(dir, "missing-frame.png"),
		"-o", output,
		"--bg-color", "0,0,0,255",
		"--resize", "scale:0",
	)
	if !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("output should not be written")
	}
}

func TestLoadOptionsFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opts.yaml")
	content := `background_color: [0, 0, 0, 255]
resize_mode:
  type: Scale
  value: 2
offset_mode:
  type: Percent
  value: [25, 75]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newValidateCmd()
	if err := cmd.ParseFlags([]string{"--options", path, "--bg-color", "1,2,3,4", "--offset", "center"}); err != nil {
		t.Fatal(err)
	}

	opts, err := loadOptions(cmd)
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}

	req, err := model.NewCompositeRequest([]byte{1}, []byte{1}, opts)
	if err != nil {
		t.Fatalf("NewCompositeRequest: %v", err)
	}
	if got := req.BackgroundColor(); got != (color.NRGBA{R: 1, G: 2, B: 3, A: 4}) {
		t.Errorf("background color = %v", got)
	}
	if got, ok := req.Resize().(model.ResizeScale); !ok || got.Factor != 2 {
		t.Errorf("resize = %#v, want Scale 2 from file", req.Resize())
	}
	if _, ok := req.Offset().(model.OffsetCenter); !ok {
		t.Errorf("offset = %#v, want Center from flag", req.Offset())
	}
}

func TestLoadOptionsJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opts.json")
	content := `{"background_color":[10,20,30,40],"offset_mode":{"type":"Pixel","value":[5,-3]}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := newValidateCmd()
	if err := cmd.ParseFlags([]string{"--options", path}); err != nil {
		t.Fatal(err)
	}

	opts, err := loadOptions(cmd)
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}
	offset, err := model.ParseOffsetMode(opts.OffsetMode)
	if err != nil {
		t.Fatal(err)
	}
	if offset != (model.OffsetPixel{X: 5, Y: -3}) {
		t.Errorf("offset = %#v", offset)
	}
}

func TestLoadOptionsMissingFile(t *testing.T) {
	cmd := newValidateCmd()
	if err := cmd.ParseFlags([]string{"--options", filepath.Join(t.TempDir(), "none.yaml")}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadOptions(cmd); !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestParseColorFlag(t *testing.T) {
	c, err := parseColorFlag(" 255, 0 ,128,255")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{255, 0, 128, 255}
	for i := range want {
		if c[i] != want[i] {
			t.Fatalf("got %v, want %v", c, want)
		}
	}

	if _, err := parseColorFlag("255,x,0,0"); !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--bg-color", "255,255,255,255", "--resize", "width:300")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, want := range []string{"Options are valid", "type: Width", "type: Center", "output_format: png"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	_, err = execute(t, "validate", "--bg-color", "256,0,0,255")
	if !errors.Is(err, model.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
