package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Export writes every key of s as one JSON object of string values, the same
// shape `JSON.stringify(localStorage)` produces in a browser.
func Export(ctx context.Context, s Store, w io.Writer) (int, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}
	dump := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			return 0, fmt.Errorf("export %s: %w", k, err)
		}
		if ok {
			dump[k] = v
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return 0, err
	}
	return len(dump), nil
}

// Import reads a JSON object of string values from r and writes every entry
// into s in a single transaction. It returns the imported keys in order.
func Import(ctx context.Context, s Store, r io.Reader) ([]string, error) {
	var dump map[string]string
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	keys := make([]string, 0, len(dump))
	for k := range dump {
		if k == "" {
			return nil, fmt.Errorf("snapshot contains an empty key")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err := s.Update(ctx, func(tx Tx) error {
		for _, k := range keys {
			if err := tx.Set(ctx, k, dump[k]); err != nil {
				return fmt.Errorf("import %s: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
