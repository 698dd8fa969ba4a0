// 包 place：收藏地点记录模型与唯一键
package place

import (
	"errors"
	"fmt"
	"strings"
)

// Record：一条收藏地点
// 约束：JSON 字段名与本地存储槽位的既有格式一致（lat/lon 而非 latitude/longitude），image 缺省时不写出
type Record struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Image   string  `json:"image,omitempty"`
	Comment string  `json:"comment"`
}

// Key：唯一键（名称 + 经纬度），浮点按精确相等比较
type Key struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (r Record) Key() Key { return Key{Name: r.Name, Lat: r.Lat, Lon: r.Lon} }

func (k Key) String() string { return fmt.Sprintf("%s@%.4f,%.4f", k.Name, k.Lat, k.Lon) }

var ErrEmptyName = errors.New("place: empty name")

// Validate：名称去空白后不可为空
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Contains：判断序列中是否已有相同唯一键
func Contains(recs []Record, k Key) bool {
	for _, r := range recs {
		if r.Key() == k {
			return true
		}
	}
	return false
}

// Without：返回剔除指定唯一键后的新序列，保持原有顺序
func Without(recs []Record, k Key) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.Key() != k {
			out = append(out, r)
		}
	}
	return out
}
