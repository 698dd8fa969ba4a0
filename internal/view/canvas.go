package view

import (
	"html/template"
	"sync"

	"github.com/google/uuid"

	"tripmark/internal/place"
)

// Canvas：地图与列表能力的内存实现；HTTP 层将其快照序列化给前端地图组件
type Canvas struct {
	mu      sync.RWMutex
	order   []string
	pins    map[string]PinView
	entries []Entry
	center  [2]float64
	zoom    int
}

// PinView：图钉快照
type PinView struct {
	ID    string        `json:"id"`
	Lat   float64       `json:"lat"`
	Lon   float64       `json:"lon"`
	Popup template.HTML `json:"popup"`
}

// EntryView：列表项快照
type EntryView struct {
	Name  string    `json:"name"`
	Title string    `json:"title"`
	Key   place.Key `json:"key"`
}

// Scene：一次完整画面
type Scene struct {
	Center  [2]float64  `json:"center"`
	Zoom    int         `json:"zoom"`
	Pins    []PinView   `json:"pins"`
	Entries []EntryView `json:"entries"`
}

func NewCanvas(lat, lon float64, zoom int) *Canvas {
	return &Canvas{pins: make(map[string]PinView), center: [2]float64{lat, lon}, zoom: zoom}
}

func (c *Canvas) AddPin(lat, lon float64, popup template.HTML) string {
	id := uuid.NewString()
	c.mu.Lock()
	c.pins[id] = PinView{ID: id, Lat: lat, Lon: lon, Popup: popup}
	c.order = append(c.order, id)
	c.mu.Unlock()
	return id
}

func (c *Canvas) RemovePin(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pins[id]; !ok {
		return
	}
	delete(c.pins, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Canvas) SetView(lat, lon float64, zoom int) {
	c.mu.Lock()
	c.center = [2]float64{lat, lon}
	c.zoom = zoom
	c.mu.Unlock()
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
}

func (c *Canvas) Append(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

// Entry：按唯一键查找当前列表项
func (c *Canvas) Entry(k place.Key) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.Key == k {
			return e, true
		}
	}
	return Entry{}, false
}

func (c *Canvas) Snapshot() Scene {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sc := Scene{Center: c.center, Zoom: c.zoom, Pins: make([]PinView, 0, len(c.order)), Entries: make([]EntryView, 0, len(c.entries))}
	for _, id := range c.order {
		sc.Pins = append(sc.Pins, c.pins[id])
	}
	for _, e := range c.entries {
		sc.Entries = append(sc.Entries, EntryView{Name: e.Name, Title: e.Title, Key: e.Key})
	}
	return sc
}
