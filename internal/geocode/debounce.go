package geocode

import (
	"sync"
	"time"
)

// Debouncer：尾沿防抖，窗口内的多次触发只执行最后一次（边输入边搜索模式使用）
type Debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	timer *time.Timer
}

func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = DefaultMinInterval
	}
	return &Debouncer{wait: wait}
}

// Trigger：重置计时器，窗口结束后在独立协程执行 fn
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// Stop：丢弃尚未执行的触发
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
