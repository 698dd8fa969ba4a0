// 包 imaging：附件图片缩放与 data URI 编码
// 背景：整个记录集合作为一个整体写入槽位，图片体积直接决定能存多少条
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strconv"

	"golang.org/x/image/draw"
)

const (
	DefaultMaxSide = 1024
	// DefaultMaxPixels：解码前按声明尺寸拦截，防止高压缩比图片解码时撑爆内存
	DefaultMaxPixels = 40_000_000
	jpegQuality      = 85
)

var ErrUnsupported = errors.New("imaging: unsupported image")

// MaxSideFromEnv：IMAGE_MAX_SIDE，非法或非正数时使用默认值
func MaxSideFromEnv() int {
	if v := os.Getenv("IMAGE_MAX_SIDE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxSide
}

// MaxPixelsFromEnv：IMAGE_MAX_PIXELS，非法或非正数时使用默认值
func MaxPixelsFromEnv() int64 {
	if v := os.Getenv("IMAGE_MAX_PIXELS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxPixels
}

// Downscale：长边不超过 maxSide 时原样编码为 data URI；否则等比缩小并以 JPEG(q=85) 重新编码
func Downscale(data []byte, maxSide int) (string, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxPixelsFromEnv() {
		return "", fmt.Errorf("%w: %dx%d exceeds pixel limit", ErrUnsupported, cfg.Width, cfg.Height)
	}
	if max(cfg.Width, cfg.Height) <= maxSide {
		return DataURI("image/"+format, data), nil
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	w, h := fit(cfg.Width, cfg.Height, maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", err
	}
	return DataURI("image/jpeg", buf.Bytes()), nil
}

// fit：按长边缩放比例计算目标尺寸，四舍五入且至少 1 像素
func fit(w, h, maxSide int) (int, int) {
	scale := float64(maxSide) / float64(max(w, h))
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	return max(nw, 1), max(nh, 1)
}

// DataURI：编码为 base64 data URI；mime 为空时按内容嗅探
func DataURI(mime string, data []byte) string {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
