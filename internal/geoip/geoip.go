// 包 geoip：按访问者 IP 估算初始地图中心（可选，未配置数据库时始终回退默认视角）
package geoip

import (
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"tripmark/internal/logger"
)

// Center：初始视角
type Center struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// Locator：GeoIP2 City 库查询；reader 为 nil 时所有查询未命中
type Locator struct {
	reader *geoip2.Reader
	zoom   int
}

// OpenFromEnv：GEOIP_CITY_PATH 指向 GeoLite2-City.mmdb；未配置或打开失败时返回空 Locator
func OpenFromEnv() *Locator {
	p := os.Getenv("GEOIP_CITY_PATH")
	if p == "" {
		return &Locator{}
	}
	r, err := geoip2.Open(p)
	if err != nil {
		logger.L().Error("geoip_open_error", "path", p, "err", err)
		return &Locator{}
	}
	logger.L().Info("geoip_ready", "path", p)
	return &Locator{reader: r, zoom: 8}
}

func (l *Locator) Close() error {
	if l.reader == nil {
		return nil
	}
	return l.reader.Close()
}

// Lookup：命中城市坐标时返回 true；私有地址与无坐标记录视为未命中
func (l *Locator) Lookup(ip string) (Center, bool) {
	if l == nil || l.reader == nil {
		return Center{}, false
	}
	p := net.ParseIP(ip)
	if p == nil || p.IsLoopback() || p.IsPrivate() {
		return Center{}, false
	}
	rec, err := l.reader.City(p)
	if err != nil {
		logger.L().Debug("geoip_lookup_error", "ip", ip, "err", err)
		return Center{}, false
	}
	if rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
		return Center{}, false
	}
	return Center{Lat: rec.Location.Latitude, Lon: rec.Location.Longitude, Zoom: l.zoom}, true
}

// CenterFor：按请求来源定位，未命中时返回 def
func (l *Locator) CenterFor(r *http.Request, def Center) Center {
	if c, ok := l.Lookup(VisitorIP(r)); ok {
		return c
	}
	return def
}

// VisitorIP：优先常见反向代理头，最后回退远端地址
// 约束：代理头可被伪造，这里只用于选择初始视角
func VisitorIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("cf-connecting-ip"); x != "" {
		return x
	}
	if x := h.Get("x-real-ip"); x != "" {
		return x
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
