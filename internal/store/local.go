package store

import (
	"context"
	"encoding/json"
	"fmt"
	"tfm-tracker/internal/constants"
	"tfm-tracker/internal/domain"
)

// LocalCache is the client's fallback copy of the document.
type LocalCache struct {
	kv KV
}

func NewLocalCache(kv KV) *LocalCache {
	return &LocalCache{kv: kv}
}

func (c *LocalCache) Load(ctx context.Context) (domain.Document, bool, error) {
	raw, ok, err := c.kv.Get(ctx, constants.LocalCacheKey)
	if err != nil || !ok {
		return domain.Document{}, false, err
	}
	var doc domain.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.Document{}, false, fmt.Errorf("%w: %w", ErrCorruptDocument, err)
	}
	return doc, true, nil
}

func (c *LocalCache) Save(ctx context.Context, doc domain.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode local cache: %w", err)
	}
	return c.kv.Set(ctx, constants.LocalCacheKey, string(raw))
}
