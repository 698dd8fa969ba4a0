package migrate

import (
	"database/sql"

	"tripmark/internal/logger"
)

// 背景：首次运行自动创建槽位表；仅 SLOT_BACKEND=postgres 时调用
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _tm_slots (
            key TEXT PRIMARY KEY,
            value BYTEA NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
