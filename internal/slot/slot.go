// 包 slot：本地持久化键值槽位，整块读写；记录存储与语言偏好都建立在单个槽位之上
package slot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tripmark/internal/logger"
	"tripmark/internal/migrate"
	"tripmark/internal/utils"
)

var (
	// ErrNotFound：槽位不存在
	ErrNotFound = errors.New("slot: not found")
	// ErrQuotaExceeded：写入超过配额；调用方需提示用户删除条目或去掉图片
	ErrQuotaExceeded = errors.New("slot: quota exceeded")
)

// DefaultQuota：对齐浏览器 localStorage 的常见上限
const DefaultQuota = 5 << 20

// Slot：键值槽位
// 约束：Get 在键不存在时返回 ErrNotFound；Set 为整值覆盖写
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type quota struct {
	Slot
	max int
}

// WithQuota：为任意后端附加写入大小上限；max<=0 时不限制
func WithQuota(s Slot, max int) Slot {
	if max <= 0 {
		return s
	}
	return &quota{Slot: s, max: max}
}

func (q *quota) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > q.max {
		logger.L().Warn("slot_quota_exceeded", "key", key, "size", len(value), "max", q.max)
		return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, len(value), q.max)
	}
	return q.Slot.Set(ctx, key, value)
}

// Closer：部分后端持有连接或文件句柄
type Closer interface{ Close() error }

// OpenFromEnv：按 SLOT_BACKEND 选择后端（file/bolt/redis/postgres/memory），默认 file
// 约束：SLOT_QUOTA_BYTES 解析失败时回退默认配额；返回的 close 函数总是非空
func OpenFromEnv(ctx context.Context) (Slot, func() error, error) {
	backend := strings.ToLower(os.Getenv("SLOT_BACKEND"))
	if backend == "" {
		backend = "file"
	}
	max := DefaultQuota
	if v := os.Getenv("SLOT_QUOTA_BYTES"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			max = n
		}
	}
	noop := func() error { return nil }
	l := logger.L()
	l.Debug("slot_env", "backend", backend, "quota", max)
	var s Slot
	closeFn := noop
	switch backend {
	case "memory":
		s = NewMemory()
	case "file":
		dir := os.Getenv("SLOT_DIR")
		if dir == "" {
			dir = filepath.Join("data", "slots")
		}
		f, err := NewFile(dir)
		if err != nil {
			return nil, noop, err
		}
		s = f
	case "bolt":
		p := os.Getenv("SLOT_BOLT_PATH")
		if p == "" {
			p = filepath.Join("data", "tripmark.bolt")
		}
		b, err := NewBolt(p)
		if err != nil {
			return nil, noop, err
		}
		s, closeFn = b, b.Close
	case "redis":
		rc := utils.OpenRedisFromEnv()
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, noop, err
		}
		s, closeFn = NewRedis(rc), rc.Close
	case "postgres":
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			return nil, noop, err
		}
		if err := migrate.EnsureSchema(db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		s, closeFn = NewPostgres(db), db.Close
	default:
		return nil, noop, fmt.Errorf("slot: unknown backend %q", backend)
	}
	l.Info("slot_open_ok", "backend", backend)
	return WithQuota(s, max), closeFn, nil
}
