package farm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agri-smart/store"
)

// loadList reads the JSON array under key. An absent key yields an empty
// list. A value that does not decode is logged and also treated as empty;
// corrupt reports whether that happened.
func loadList[T any](ctx context.Context, r store.Reader, key string, log *zap.Logger) (items []T, corrupt bool, err error) {
	raw, ok, err := r.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	items, corrupt = decodeList[T](key, raw, ok, log)
	return items, corrupt, nil
}

// decodeList decodes a value already read from key, with the same absent and
// corrupt handling as loadList.
func decodeList[T any](key, raw string, ok bool, log *zap.Logger) (items []T, corrupt bool) {
	if !ok || raw == "" {
		return []T{}, false
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Warn("discarding undecodable stored collection",
			zap.String("key", key), zap.Error(err))
		return []T{}, true
	}
	if items == nil {
		items = []T{}
	}
	return items, false
}

// saveList writes items as a JSON array under key.
func saveList[T any](ctx context.Context, tx store.Tx, key string, items []T) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.Set(ctx, key, string(b))
}

// nextID mints a timestamp id that is strictly greater than every id already
// in use, so ids stay unique when two records land in the same millisecond.
func nextID(now time.Time, used []int64) int64 {
	id := now.UnixMilli()
	for _, u := range used {
		if u >= id {
			id = u + 1
		}
	}
	return id
}
