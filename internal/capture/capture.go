// 包 capture：地点录入流程状态机（Idle / Pending）
// 约束：同一时刻只有一个待定坐标；新的点击或搜索结果覆盖旧坐标而不排队
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"tripmark/internal/geocode"
	"tripmark/internal/imaging"
	"tripmark/internal/logger"
	"tripmark/internal/place"
)

type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = Pending
	case "idle":
		*s = Idle
	default:
		return fmt.Errorf("capture: unknown state %q", b)
	}
	return nil
}

var (
	// ErrInvalidSubmit：名称为空或没有待定坐标
	ErrInvalidSubmit = errors.New("capture: name and location required")
	// ErrSuperseded：处理图片期间表单被关闭或坐标被替换
	ErrSuperseded = errors.New("capture: submit superseded")
	// ErrImage：附件无法解码
	ErrImage = errors.New("capture: image")
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Form：用户提交的表单；Image 为原始附件字节
type Form struct {
	Name    string
	Comment string
	Image   []byte
}

// Snapshot：供前端恢复表单显示
type Snapshot struct {
	State       State  `json:"state"`
	Coord       *Coord `json:"coord,omitempty"`
	PrefillName string `json:"prefill_name,omitempty"`
}

type Adder interface {
	Add(ctx context.Context, r place.Record) error
}

type Renderer interface {
	Render(ctx context.Context) error
}

// Flow：待定坐标与表单预填的唯一写入者
// gen 在每次待定状态变化时递增，用于识别提交期间发生的取消或重定位
type Flow struct {
	mu      sync.Mutex
	state   State
	pending Coord
	prefill string
	gen     uint64

	store     Adder
	view      Renderer
	maxSide   int
	downscale func([]byte, int) (string, error)
}

func New(store Adder, view Renderer, maxSide int) *Flow {
	return &Flow{store: store, view: view, maxSide: maxSide, downscale: imaging.Downscale}
}

// Click：地图点击；Idle 时打开空表单，Pending 时仅覆盖坐标
func (f *Flow) Click(c Coord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Idle {
		f.prefill = ""
	}
	f.state = Pending
	f.pending = c
	f.gen++
	logger.L().Debug("capture_click", "lat", c.Lat, "lon", c.Lon)
}

// ApplySearch：搜索命中，进入 Pending 并用显示名预填名称
func (f *Flow) ApplySearch(r geocode.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Pending
	f.pending = Coord{Lat: r.Lat, Lon: r.Lon}
	f.prefill = r.DisplayName
	f.gen++
	logger.L().Debug("capture_search_applied", "lat", r.Lat, "lon", r.Lon, "name", r.DisplayName)
}

// Cancel：关闭表单，丢弃待定坐标与任何进行中的提交意图
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Flow) reset() {
	f.state = Idle
	f.pending = Coord{}
	f.prefill = ""
	f.gen++
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Snapshot{State: f.state, PrefillName: f.prefill}
	if f.state == Pending {
		c := f.pending
		s.Coord = &c
	}
	return s
}

// Submit：校验并构建记录交给存储；成功后回到 Idle 并重建视图
// 失败时保持 Pending，用户的输入不丢失
func (f *Flow) Submit(ctx context.Context, form Form) error {
	name := strings.TrimSpace(form.Name)
	f.mu.Lock()
	if f.state != Pending || name == "" {
		f.mu.Unlock()
		return ErrInvalidSubmit
	}
	rec := place.Record{
		Name:    name,
		Lat:     f.pending.Lat,
		Lon:     f.pending.Lon,
		Comment: strings.TrimSpace(form.Comment),
	}
	gen := f.gen
	f.mu.Unlock()

	if len(form.Image) > 0 {
		uri, err := f.downscale(form.Image, f.maxSide)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrImage, err)
		}
		rec.Image = uri
	}

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		logger.L().Info("capture_submit_superseded", "name", rec.Name)
		return ErrSuperseded
	}
	if err := f.store.Add(ctx, rec); err != nil {
		f.mu.Unlock()
		return err
	}
	f.reset()
	f.mu.Unlock()
	logger.L().Info("capture_saved", "name", rec.Name, "lat", rec.Lat, "lon", rec.Lon, "image", rec.Image != "")

	// 记录已保存且流程已回到 Idle；重建失败只记日志，下一次重建会补上
	if f.view != nil {
		if err := f.view.Render(ctx); err != nil {
			logger.L().Warn("capture_render_error", "name", rec.Name, "err", err)
		}
	}
	return nil
}
