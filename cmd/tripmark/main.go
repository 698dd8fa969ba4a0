// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"tripmark/internal/api"
	"tripmark/internal/app"
	"tripmark/internal/geocode"
	"tripmark/internal/geoip"
	"tripmark/internal/imaging"
	"tripmark/internal/logger"
	"tripmark/internal/metrics"
	"tripmark/internal/middleware"
	"tripmark/internal/slot"
	"tripmark/internal/utils"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	ctx := context.Background()

	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	ui := os.Getenv("UI_DIST")
	if ui == "" {
		ui = filepath.Join("ui", "dist")
	}
	l.Debug("config", "api_base", apiBase, "ui", ui)

	st, closeSlot, err := slot.OpenFromEnv(ctx)
	if err != nil {
		l.Error("slot_open_error", "err", err)
		os.Exit(1)
	}
	defer closeSlot()

	// 地理编码结果缓存（可选）：仅在配置 REDIS_HOST 时启用
	var rc *redis.Client
	if utils.RedisEnabled() {
		rc = utils.OpenRedisFromEnv()
		if err := rc.Ping(ctx).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
			_ = rc.Close()
			rc = nil
		} else {
			l.Info("redis_ping_ok")
			defer rc.Close()
		}
	} else {
		l.Info("redis_disabled")
	}
	geo := geocode.NewFromEnv(rc)

	opt := app.Options{ImageMaxSide: imaging.MaxSideFromEnv()}
	if os.Getenv("SEARCH_AS_YOU_TYPE") == "true" {
		opt.TypingDelay = geocode.DefaultMinInterval
		if v := os.Getenv("GEOCODE_MIN_INTERVAL_MS"); v != "" {
			if n, e := strconv.Atoi(v); e == nil && n > 0 {
				opt.TypingDelay = time.Duration(n) * time.Millisecond
			}
		}
	}
	a, err := app.New(ctx, st, geo, opt)
	if err != nil {
		l.Error("app_init_error", "err", err)
		os.Exit(1)
	}

	loc := geoip.OpenFromEnv()
	defer loc.Close()

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(a)))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc("/config.js", api.ConfigJS(apiBase, os.Getenv("TILE_URL"), loc,
		geoip.Center{Lat: app.DefaultLat, Lon: app.DefaultLon, Zoom: app.DefaultZoom}))
	mux.Handle("/", http.FileServer(http.Dir(ui)))

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "tripmark.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil {
			l.Error("server_error", "err", err)
		}
		return
	}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil {
		l.Error("server_error", "err", err)
	}
}
