package api

import (
	"encoding/json"
	"net/http"

	"tripmark/internal/geoip"
)

// DefaultTileURL：OSM 标准瓦片，仅前端渲染使用
const DefaultTileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"

// ConfigJS：向前端暴露 API 基础路径、瓦片地址与初始视角，避免前端硬编码
// 初始视角按访问者 IP 定位，未命中时使用 def
func ConfigJS(apiBase, tileURL string, loc *geoip.Locator, def geoip.Center) http.HandlerFunc {
	if tileURL == "" {
		tileURL = DefaultTileURL
	}
	base, _ := json.Marshal(apiBase)
	tiles, _ := json.Marshal(tileURL)
	return func(w http.ResponseWriter, r *http.Request) {
		center, _ := json.Marshal(loc.CenterFor(r, def))
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__=" + string(base) + "\n"))
		_, _ = w.Write([]byte("window.__TILE_URL__=" + string(tiles) + "\n"))
		_, _ = w.Write([]byte("window.__MAP_CENTER__=" + string(center) + "\n"))
	}
}
