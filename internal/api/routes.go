// 包 api：集中注册 HTTP API 路由，主入口挂载到 API_BASE 前缀下
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"tripmark/internal/app"
	"tripmark/internal/capture"
	"tripmark/internal/i18n"
	"tripmark/internal/logger"
	"tripmark/internal/metrics"
	"tripmark/internal/place"
)

// maxUpload：原始图片上限，缩放前的体积
const maxUpload = 16 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// route：方法校验 + 计数/耗时指标
func route(mux *http.ServeMux, path string, methods []string, h http.HandlerFunc) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ok := false
		for _, m := range methods {
			if r.Method == m {
				ok = true
				break
			}
		}
		if !ok {
			w.Header().Set("allow", strings.Join(methods, ", "))
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		t0 := time.Now()
		metrics.RequestsTotal.WithLabelValues(path).Inc()
		h(w, r)
		metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(v)
}

// BuildRoutes：构建 API 路由；独立 ServeMux 便于挂载到 API_BASE 前缀
func BuildRoutes(a *app.App) *http.ServeMux {
	mux := http.NewServeMux()
	get := []string{http.MethodGet}
	post := []string{http.MethodPost}

	route(mux, "/scene", get, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.State(nil))
	})

	route(mux, "/places", get, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.Records(r.Context()))
	})

	route(mux, "/search", get, func(w http.ResponseWriter, r *http.Request) {
		n := a.Search(r.Context(), r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, a.State(n))
	})

	route(mux, "/search/typing", post, func(w http.ResponseWriter, r *http.Request) {
		if !a.Type(r.URL.Query().Get("q")) {
			writeError(w, http.StatusNotFound, "search-as-you-type disabled")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	route(mux, "/capture/click", post, func(w http.ResponseWriter, r *http.Request) {
		var c capture.Coord
		if err := decodeJSON(r, &c); err != nil {
			writeError(w, http.StatusBadRequest, "bad coordinate")
			return
		}
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			writeError(w, http.StatusBadRequest, "coordinate out of range")
			return
		}
		a.Click(c.Lat, c.Lon)
		writeJSON(w, http.StatusOK, a.State(nil))
	})

	route(mux, "/capture/cancel", post, func(w http.ResponseWriter, r *http.Request) {
		a.Cancel()
		writeJSON(w, http.StatusOK, a.State(nil))
	})

	// 管理命令直接改槽位后，由它通知服务重建
	route(mux, "/refresh", post, func(w http.ResponseWriter, r *http.Request) {
		if err := a.Refresh(r.Context()); err != nil {
			logger.L().Error("refresh_error", "err", err)
			writeError(w, http.StatusInternalServerError, "refresh failed")
			return
		}
		writeJSON(w, http.StatusOK, a.State(nil))
	})

	route(mux, "/capture/submit", post, func(w http.ResponseWriter, r *http.Request) {
		form, err := readForm(r)
		if err != nil {
			logger.L().Debug("submit_form_error", "err", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, a.State(a.Submit(r.Context(), form)))
	})

	route(mux, "/places/select", post, func(w http.ResponseWriter, r *http.Request) {
		var k place.Key
		if err := decodeJSON(r, &k); err != nil {
			writeError(w, http.StatusBadRequest, "bad key")
			return
		}
		if !a.Select(k) {
			writeError(w, http.StatusNotFound, "no such place")
			return
		}
		writeJSON(w, http.StatusOK, a.State(nil))
	})

	route(mux, "/places/delete", post, func(w http.ResponseWriter, r *http.Request) {
		var k place.Key
		if err := decodeJSON(r, &k); err != nil {
			writeError(w, http.StatusBadRequest, "bad key")
			return
		}
		writeJSON(w, http.StatusOK, a.State(a.Delete(r.Context(), k)))
	})

	route(mux, "/lang", []string{http.MethodGet, http.MethodPut}, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			var body struct {
				Lang string `json:"lang"`
			}
			if err := decodeJSON(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "bad body")
				return
			}
			if err := a.SetLang(r.Context(), body.Lang); err != nil {
				if errors.Is(err, i18n.ErrUnknownLang) {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, "save failed")
				return
			}
		}
		lang := a.Lang()
		writeJSON(w, http.StatusOK, langResponse{Lang: lang, Languages: i18n.Languages, Labels: i18n.Labels(lang)})
	})

	route(mux, "/i18n", get, func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		if !i18n.Supported(lang) {
			lang = a.Lang()
		}
		writeJSON(w, http.StatusOK, langResponse{Lang: lang, Languages: i18n.Languages, Labels: i18n.Labels(lang)})
	})

	return mux
}

// readForm：支持 multipart（含图片附件 image）与 JSON 两种提交方式
func readForm(r *http.Request) (capture.Form, error) {
	var f capture.Form
	ct, _, _ := mime.ParseMediaType(r.Header.Get("content-type"))
	switch ct {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(nil, r.Body, maxUpload+1<<20)
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			return f, errors.New("bad multipart body")
		}
		f.Name = r.FormValue("name")
		f.Comment = r.FormValue("comment")
		file, _, err := r.FormFile("image")
		if err == nil {
			defer file.Close()
			b, err := io.ReadAll(io.LimitReader(file, maxUpload))
			if err != nil {
				return f, errors.New("bad image upload")
			}
			f.Image = b
		} else if !errors.Is(err, http.ErrMissingFile) {
			return f, errors.New("bad image upload")
		}
	default:
		var body submitBody
		if err := decodeJSON(r, &body); err != nil {
			return f, errors.New("bad json body")
		}
		f.Name, f.Comment = body.Name, body.Comment
	}
	return f, nil
}
