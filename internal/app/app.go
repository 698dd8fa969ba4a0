// 包 app：单用户应用状态的唯一持有者，串联录入流程、记录存储、视图重建、搜索与语言
// 约束：每个可变字段只有一个写入者（待定坐标归 capture.Flow，图钉与列表归 view.Synchronizer，语言归本包）
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"tripmark/internal/capture"
	"tripmark/internal/geocode"
	"tripmark/internal/i18n"
	"tripmark/internal/logger"
	"tripmark/internal/place"
	"tripmark/internal/slot"
	"tripmark/internal/store"
	"tripmark/internal/view"
)

// 初始视角：乌兰巴托
const (
	DefaultLat  = 47.918873
	DefaultLon  = 106.917701
	DefaultZoom = 6
)

// Notice：面向用户的提示，kind 为 error 或 info
type Notice struct {
	Kind    string `json:"kind"`
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Searcher：地理编码查询能力
type Searcher interface {
	Search(ctx context.Context, query, lang string) (*geocode.Result, error)
}

// State：前端一次完整刷新所需的全部内容
type State struct {
	Scene   view.Scene       `json:"scene"`
	Capture capture.Snapshot `json:"capture"`
	Lang    string           `json:"lang"`
	Notice  *Notice          `json:"notice,omitempty"`
}

type Options struct {
	ImageMaxSide int
	// TypingDelay>0 时启用边输入边搜索
	TypingDelay time.Duration
}

type App struct {
	store  *store.RecordStore
	canvas *view.Canvas
	sync   *view.Synchronizer
	flow   *capture.Flow
	geo    Searcher
	prefs  *i18n.Prefs

	mu   sync.Mutex
	lang string
	// last：异步（防抖）搜索产生的提示，下次读取状态时带回
	last *Notice
	// cancels：Cancel 次数；防抖搜索在触发时记下，返回时不一致则丢弃结果
	cancels uint64

	typing *geocode.Debouncer
}

func New(ctx context.Context, s slot.Slot, geo Searcher, opt Options) (*App, error) {
	st := store.New(s)
	canvas := view.NewCanvas(DefaultLat, DefaultLon, DefaultZoom)
	sy := view.NewSynchronizer(st, canvas, canvas)
	a := &App{
		store:  st,
		canvas: canvas,
		sync:   sy,
		flow:   capture.New(st, sy, opt.ImageMaxSide),
		geo:    geo,
		prefs:  i18n.NewPrefs(s),
	}
	a.lang = a.prefs.Get(ctx)
	if opt.TypingDelay > 0 {
		a.typing = geocode.NewDebouncer(opt.TypingDelay)
	}
	if err := sy.Render(ctx); err != nil {
		return nil, err
	}
	logger.L().Info("app_ready", "lang", a.lang, "records", len(st.Load(ctx)), "typing", a.typing != nil)
	return a, nil
}

func (a *App) Lang() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lang
}

func (a *App) notice(kind, key string) *Notice {
	return &Notice{Kind: kind, Key: key, Message: i18n.T(a.Lang(), key)}
}

// State：当前画面、表单状态与语言；附带并清空异步搜索留下的提示
func (a *App) State(n *Notice) State {
	a.mu.Lock()
	if n == nil {
		n = a.last
	}
	a.last = nil
	lang := a.lang
	a.mu.Unlock()
	return State{Scene: a.canvas.Snapshot(), Capture: a.flow.Snapshot(), Lang: lang, Notice: n}
}

func (a *App) Records(ctx context.Context) []place.Record { return a.store.Load(ctx) }

// Search：显式提交的搜索。空查询不做任何事；未命中或失败只产生提示，不改变录入状态
func (a *App) Search(ctx context.Context, query string) *Notice {
	return a.search(ctx, query, nil)
}

// search：current 非空时在应用结果前检查是否仍有效，与 Cancel 互斥
func (a *App) search(ctx context.Context, query string, current func() bool) *Notice {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	r, err := a.geo.Search(ctx, query, a.Lang())
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		return a.notice("info", "notFound")
	case err != nil:
		logger.L().Error("search_error", "q", query, "err", err)
		return a.notice("error", "searchError")
	}
	if current != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		if !current() {
			logger.L().Debug("search_discarded", "q", query)
			return nil
		}
	}
	a.canvas.SetView(r.Lat, r.Lon, view.FocusZoom)
	a.flow.ApplySearch(*r)
	return nil
}

// Type：边输入边搜索；未启用时返回 false。结果在防抖窗口结束后异步应用，
// 输入之后发生过 Cancel 的结果会被丢弃
func (a *App) Type(query string) bool {
	if a.typing == nil {
		return false
	}
	a.mu.Lock()
	seen := a.cancels
	a.mu.Unlock()
	a.typing.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		n := a.search(ctx, query, func() bool { return a.cancels == seen })
		if n == nil {
			return
		}
		a.mu.Lock()
		if a.cancels == seen {
			a.last = n
		}
		a.mu.Unlock()
	})
	return true
}

func (a *App) Click(lat, lon float64) {
	a.flow.Click(capture.Coord{Lat: lat, Lon: lon})
}

func (a *App) Cancel() {
	if a.typing != nil {
		a.typing.Stop()
	}
	a.mu.Lock()
	a.cancels++
	a.mu.Unlock()
	a.flow.Cancel()
}

// Submit：录入表单提交，错误全部转换为本地化提示
func (a *App) Submit(ctx context.Context, form capture.Form) *Notice {
	err := a.flow.Submit(ctx, form)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, capture.ErrInvalidSubmit):
		return a.notice("error", "pickHint")
	case errors.Is(err, slot.ErrQuotaExceeded):
		return a.notice("error", "storageFull")
	case errors.Is(err, capture.ErrSuperseded):
		return a.notice("info", "submitDiscarded")
	case errors.Is(err, capture.ErrImage):
		return a.notice("error", "imageError")
	default:
		logger.L().Error("submit_error", "err", err)
		return a.notice("error", "saveError")
	}
}

// Select：列表项点击，地图居中到该记录
func (a *App) Select(k place.Key) bool {
	e, ok := a.canvas.Entry(k)
	if !ok {
		return false
	}
	e.Select()
	return true
}

// Delete：列表项删除。不在当前列表中的键直接按存储删除（结果为空操作）并重建
func (a *App) Delete(ctx context.Context, k place.Key) *Notice {
	var err error
	if e, ok := a.canvas.Entry(k); ok {
		err = e.Delete(ctx)
	} else if err = a.store.Remove(ctx, k); err == nil {
		err = a.sync.Render(ctx)
	}
	if err != nil {
		logger.L().Error("delete_error", "key", k.String(), "err", err)
		if errors.Is(err, slot.ErrQuotaExceeded) {
			return a.notice("error", "storageFull")
		}
		return a.notice("error", "deleteError")
	}
	return nil
}

func (a *App) SetLang(ctx context.Context, lang string) error {
	if err := a.prefs.Set(ctx, lang); err != nil {
		return err
	}
	a.mu.Lock()
	a.lang = lang
	a.mu.Unlock()
	logger.L().Info("lang_changed", "lang", lang)
	return nil
}

// Refresh：外部（例如管理命令）改动槽位后重新读取语言偏好并重建视图
func (a *App) Refresh(ctx context.Context) error {
	lang := a.prefs.Get(ctx)
	a.mu.Lock()
	a.lang = lang
	a.mu.Unlock()
	return a.sync.Render(ctx)
}
