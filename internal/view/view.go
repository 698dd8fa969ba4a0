// 包 view：地图图钉与侧栏列表的全量重建
// 背景：收藏数量很小，每次变更都拆除全部图钉与列表项后按存储顺序重建，不做增量比对
package view

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"tripmark/internal/logger"
	"tripmark/internal/metrics"
	"tripmark/internal/place"
)

// FocusZoom：点击列表项或搜索命中后地图居中的缩放级别
const FocusZoom = 10

// Map：地图组件能力（放置图钉并绑定弹窗、移除图钉、移动视角）
type Map interface {
	AddPin(lat, lon float64, popup template.HTML) string
	RemovePin(id string)
	SetView(lat, lon float64, zoom int)
}

// Entry：侧栏列表中的一项；Select 居中地图，Delete 删除记录并重建视图
type Entry struct {
	Key    place.Key
	Name   string
	Title  string
	Select func()
	Delete func(ctx context.Context) error
}

// List：侧栏列表能力
type List interface {
	Clear()
	Append(e Entry)
}

// Source：视图只读取记录；删除通过 Remove 回写
type Source interface {
	Load(ctx context.Context) []place.Record
	Remove(ctx context.Context, k place.Key) error
}

// Synchronizer：持有本次渲染添加的图钉 ID，下次渲染前逐一移除
type Synchronizer struct {
	mu   sync.Mutex
	src  Source
	m    Map
	list List
	pins []string
}

func NewSynchronizer(src Source, m Map, list List) *Synchronizer {
	return &Synchronizer{src: src, m: m, list: list}
}

// Render：拆除上次的全部图钉、清空列表，再按存储顺序为每条记录各建一个列表项与一个图钉
func (s *Synchronizer) Render(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.pins {
		s.m.RemovePin(id)
	}
	s.pins = s.pins[:0]
	s.list.Clear()

	recs := s.src.Load(ctx)
	for _, r := range recs {
		popup, err := Popup(r)
		if err != nil {
			return err
		}
		s.list.Append(s.entry(r))
		s.pins = append(s.pins, s.m.AddPin(r.Lat, r.Lon, popup))
	}
	metrics.RendersTotal.Inc()
	metrics.PinsDisplayed.Set(float64(len(s.pins)))
	logger.L().Debug("view_render", "records", len(recs))
	return nil
}

func (s *Synchronizer) entry(r place.Record) Entry {
	k := r.Key()
	return Entry{
		Key:   k,
		Name:  r.Name,
		Title: fmt.Sprintf("%.4f, %.4f", r.Lat, r.Lon),
		Select: func() {
			s.m.SetView(k.Lat, k.Lon, FocusZoom)
		},
		Delete: func(ctx context.Context) error {
			if err := s.src.Remove(ctx, k); err != nil {
				return err
			}
			return s.Render(ctx)
		},
	}
}

var popupTmpl = template.Must(template.New("popup").Parse(
	`<b style="font-size:16px;color:#222;">{{.Name}}</b>` +
		`{{if .Comment}}<div style="margin-top:8px;padding:6px 8px;background:#f9f9f9;border-left:3px solid #0077cc;font-style:italic;font-size:13px;color:#333;">{{.Comment}}</div>{{end}}` +
		`{{if .Image}}<br><img src="{{.Image}}" width="150" style="margin-top:10px;border-radius:4px;box-shadow:0 1px 5px rgba(0,0,0,.2);">{{end}}`))

type popupData struct {
	Name    string
	Comment string
	Image   template.URL
}

// Popup：生成图钉弹窗 HTML；名称与备注按文本转义，图片仅在是 data:image/ URI 时作为 src 输出
func Popup(r place.Record) (template.HTML, error) {
	d := popupData{Name: r.Name, Comment: r.Comment}
	if strings.HasPrefix(r.Image, "data:image/") && !strings.ContainsAny(r.Image, "\"'<> ") {
		d.Image = template.URL(r.Image)
	}
	var b strings.Builder
	if err := popupTmpl.Execute(&b, d); err != nil {
		return "", err
	}
	return template.HTML(b.String()), nil
}
