package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/TIANLI0/CompositeKit/config"
	"github.com/TIANLI0/CompositeKit/model"
	"github.com/TIANLI0/CompositeKit/service"
	"github.com/TIANLI0/CompositeKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Compositor 合成服务
type Compositor interface {
	Composite(ctx context.Context, req *model.CompositeRequest) (*model.CompositeResult, error)
}

// ResultCache 合成结果缓存
type ResultCache interface {
	GetComposite(ctx context.Context, key string) (*model.CompositeResult, error)
	SetComposite(ctx context.Context, key string, result *model.CompositeResult) error
}

type CompositeHandler struct {
	cfg        *config.Config
	compositor Compositor
	cache      ResultCache
}

// NewCompositeHandler cache 为 nil 时不使用缓存
func NewCompositeHandler(cfg *config.Config, compositor Compositor, cache ResultCache) *CompositeHandler {
	return &CompositeHandler{
		cfg:        cfg,
		compositor: compositor,
		cache:      cache,
	}
}

// Composite 处理合成请求
func (h *CompositeHandler) Composite(c *gin.Context) {
	background, err := h.readUpload(c, "background")
	if err != nil {
		h.badRequest(c, "请上传产品图 (background)", err)
		return
	}

	overlay, err := h.readUpload(c, "overlay")
	if err != nil {
		h.badRequest(c, "请上传叠加图 (overlay)", err)
		return
	}

	var opts model.CompositeOptions
	if raw := c.PostForm("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			h.badRequest(c, "参数格式错误", err)
			return
		}
	}
	h.applyOutputDefaults(&opts)

	req, err := model.NewCompositeRequest(background, overlay, opts)
	if err != nil {
		h.badRequest(c, "参数无效", err)
		return
	}

	key, err := utils.CompositeKey(req.Background(), req.Overlay(), req.Options())
	if err != nil {
		utils.Logger.Error("failed to compute cache key", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "计算缓存键失败", err)
		return
	}

	ctx := c.Request.Context()
	if h.cache != nil {
		cached, err := h.cache.GetComposite(ctx, key)
		if err != nil {
			utils.Logger.Warn("failed to get cache", zap.Error(err))
		}
		if cached != nil {
			utils.Logger.Info("cache hit", zap.String("key", key))
			h.writeImage(c, key, cached, "HIT")
			return
		}
	}

	result, err := h.compositor.Composite(ctx, req)
	if err != nil {
		utils.Logger.Error("failed to composite image", zap.String("key", key), zap.Error(err))
		switch {
		case errors.Is(err, service.ErrDecode):
			h.fail(c, http.StatusUnprocessableEntity, "图片解码失败", err)
		case errors.Is(err, service.ErrImageTooLarge):
			h.fail(c, http.StatusRequestEntityTooLarge, "图片尺寸超过限制", err)
		case errors.Is(err, service.ErrQueueFull):
			h.fail(c, http.StatusServiceUnavailable, "处理队列已满，请稍后重试", err)
		default:
			h.fail(c, http.StatusInternalServerError, "图片合成失败", err)
		}
		return
	}
	result.Key = key

	if h.cache != nil {
		if err := h.cache.SetComposite(ctx, key, result); err != nil {
			utils.Logger.Warn("failed to set cache", zap.Error(err))
		}
	}

	h.writeImage(c, key, result, "MISS")
}

// Validate 只校验参数
func (h *CompositeHandler) Validate(c *gin.Context) {
	var opts model.CompositeOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		h.badRequest(c, "参数格式错误", err)
		return
	}
	h.applyOutputDefaults(&opts)

	normalized, err := model.NormalizeOptions(opts)
	if err != nil {
		h.badRequest(c, "参数无效", err)
		return
	}

	c.JSON(http.StatusOK, model.ValidateResponse{
		Success: true,
		Message: "参数有效",
		Options: &normalized,
	})
}

// GetByKey 根据缓存键获取合成结果
func (h *CompositeHandler) GetByKey(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		h.badRequest(c, "key参数缺失", nil)
		return
	}

	if h.cache == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "缓存未启用",
		})
		return
	}

	result, err := h.cache.GetComposite(c.Request.Context(), key)
	if err != nil {
		utils.Logger.Error("failed to get composite result", zap.Error(err))
		h.fail(c, http.StatusInternalServerError, "查询失败", err)
		return
	}

	if result == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "未找到该合成结果",
		})
		return
	}

	h.writeImage(c, key, result, "HIT")
}

func (h *CompositeHandler) readUpload(c *gin.Context, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}

	if file.Size > h.cfg.Upload.MaxSize {
		return nil, fmt.Errorf("文件大小超过限制 (%d MB)", h.cfg.Upload.MaxSize/(1024*1024))
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		return nil, fmt.Errorf("不支持的文件类型: %s", contentType)
	}

	return readAll(file, h.cfg.Upload.MaxSize)
}

func readAll(file *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("文件大小超过限制 (%d MB)", limit/(1024*1024))
	}
	return data, nil
}

func (h *CompositeHandler) applyOutputDefaults(opts *model.CompositeOptions) {
	if opts.OutputFormat == "" {
		opts.OutputFormat = h.cfg.Compositor.OutputFormat
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = h.cfg.Compositor.JPEGQuality
	}
}

func (h *CompositeHandler) writeImage(c *gin.Context, key string, result *model.CompositeResult, cacheStatus string) {
	c.Header("X-Composite-Key", key)
	c.Header("X-Cache", cacheStatus)
	c.Header("X-Canvas-Size", fmt.Sprintf("%dx%d", result.Width, result.Height))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *CompositeHandler) badRequest(c *gin.Context, message string, err error) {
	h.fail(c, http.StatusBadRequest, message, err)
}

func (h *CompositeHandler) fail(c *gin.Context, status int, message string, err error) {
	resp := model.ErrorResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
}

func (h *CompositeHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
