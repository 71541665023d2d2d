package models

// All lists every persisted model, for schema auto-migration on SQLite.
func All() []any {
	return []any{
		&SystemState{},
		&ReviewBatch{},
		&ReviewItem{},
		&OutboxEntry{},
		&CachedVector{},
	}
}
