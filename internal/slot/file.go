package slot

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"tripmark/internal/logger"
)

// File：每个键一个 JSON 文件的槽位目录
// 背景：与本地文件缓存一致，写入先落临时文件再 rename，避免中途崩溃留下半截内容
type File struct {
	dir string
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	logger.L().Debug("slot_file_init", "dir", dir)
	return &File{dir: dir}, nil
}

func (s *File) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

func (s *File) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *File) Set(_ context.Context, key string, value []byte) error {
	fp := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".slot-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), fp); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	logger.L().Debug("slot_file_written", "key", key, "size", len(value))
	return nil
}
