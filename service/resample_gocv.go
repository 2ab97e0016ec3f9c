//go:build gocv

package service

import (
	"image"

	"github.com/TIANLI0/CompositeKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// opencvResampler 使用 OpenCV 的 Lanczos4 插值，需要 -tags gocv 编译
type opencvResampler struct {
	fallback Resampler
}

func init() {
	resamplers["opencv"] = opencvResampler{fallback: resamplers["lanczos"]}
}

func (r opencvResampler) Resample(img image.Image, width, height int) image.Image {
	src, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		utils.Logger.Warn("opencv conversion failed, falling back to lanczos", zap.Error(err))
		return r.fallback.Resample(img, width, height)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	interp := gocv.InterpolationLanczos4
	if width < src.Cols() && height < src.Rows() {
		interp = gocv.InterpolationArea
	}
	gocv.Resize(src, &dst, image.Point{X: width, Y: height}, 0, 0, interp)

	out, err := dst.ToImage()
	if err != nil {
		utils.Logger.Warn("opencv conversion failed, falling back to lanczos", zap.Error(err))
		return r.fallback.Resample(img, width, height)
	}
	return out
}
