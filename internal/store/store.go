// 包 store：地点记录集合的读写，整块加载、整块覆盖写入单个槽位
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"tripmark/internal/logger"
	"tripmark/internal/metrics"
	"tripmark/internal/place"
	"tripmark/internal/slot"
)

// HistoryKey：记录集合所在槽位键，沿用旧版前端的 localStorage 键名以便数据迁移
const HistoryKey = "searchHistory"

// RecordStore：记录集合的唯一持有者
// 约束：Add/Remove 的读-改-写在同一把锁内完成，等价于一次 UI 回合
type RecordStore struct {
	mu   sync.Mutex
	slot slot.Slot
	key  string
}

func New(s slot.Slot) *RecordStore { return &RecordStore{slot: s, key: HistoryKey} }

// Load：读取完整集合；槽位缺失、读取失败或内容损坏时返回空集合，不向调用方报错
func (s *RecordStore) Load(ctx context.Context) []place.Record {
	b, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, slot.ErrNotFound) {
			logger.L().Warn("store_load_error", "err", err)
		}
		return []place.Record{}
	}
	var recs []place.Record
	if err := json.Unmarshal(b, &recs); err != nil {
		logger.L().Warn("store_load_corrupt", "err", err, "size", len(b))
		metrics.StoreCorruptReadsTotal.Inc()
		return []place.Record{}
	}
	if recs == nil {
		recs = []place.Record{}
	}
	return recs
}

// Save：整块覆盖写入；配额不足时返回可被 errors.Is(err, slot.ErrQuotaExceeded) 识别的错误
func (s *RecordStore) Save(ctx context.Context, recs []place.Record) error {
	if recs == nil {
		recs = []place.Record{}
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	metrics.StoreWritesTotal.Inc()
	if err := s.slot.Set(ctx, s.key, b); err != nil {
		metrics.StoreWriteFailTotal.Inc()
		logger.L().Error("store_save_error", "err", err, "records", len(recs), "size", len(b))
		return fmt.Errorf("store: save: %w", err)
	}
	metrics.StoreRecords.Set(float64(len(recs)))
	logger.L().Debug("store_save_ok", "records", len(recs), "size", len(b))
	return nil
}

// Add：唯一键已存在时不写入；否则追加并保存。不触发视图刷新
func (s *RecordStore) Add(ctx context.Context, r place.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.Load(ctx)
	if place.Contains(recs, r.Key()) {
		logger.L().Debug("store_add_duplicate", "key", r.Key().String())
		return nil
	}
	return s.Save(ctx, append(recs, r))
}

// Remove：过滤掉匹配的记录并无条件保存；未命中时集合不变
func (s *RecordStore) Remove(ctx context.Context, k place.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Save(ctx, place.Without(s.Load(ctx), k))
}

// Import：批量合并（管理命令使用），按 Add 的去重规则一次写入；返回新增条数
func (s *RecordStore) Import(ctx context.Context, in []place.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.Load(ctx)
	added := 0
	for _, r := range in {
		if r.Validate() != nil || place.Contains(recs, r.Key()) {
			continue
		}
		recs = append(recs, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.Save(ctx, recs); err != nil {
		return 0, err
	}
	return added, nil
}
