package translation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"codeberg.org/snonux/toolbelt/internal/cache"
	"codeberg.org/snonux/toolbelt/internal/logger"
)

// CachedTranslator serves repeated translations from a cache
type CachedTranslator struct {
	next  Translator
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedTranslator wraps next with c; ttl <= 0 keeps entries forever
func NewCachedTranslator(next Translator, c cache.Cache, ttl time.Duration) *CachedTranslator {
	return &CachedTranslator{next: next, cache: c, ttl: ttl}
}

// Name returns the wrapped provider name
func (t *CachedTranslator) Name() string { return t.next.Name() }

func cacheKey(text, source, target string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("translate:%s|%s|%s", source, target, hex.EncodeToString(sum[:]))
}

// Translate returns a cached translation or asks the wrapped translator.
// Cache failures are logged and never fail the translation.
func (t *CachedTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	key := cacheKey(text, source, target)

	if v, err := t.cache.Get(ctx, key); err == nil {
		return string(v), nil
	} else if !errors.Is(err, cache.ErrMiss) {
		logger.L().Warn("translate.cache_read_failed", "error", err)
	}

	out, err := t.next.Translate(ctx, text, source, target)
	if err != nil {
		return "", err
	}

	if err := t.cache.Set(ctx, key, []byte(out), t.ttl); err != nil {
		logger.L().Warn("translate.cache_write_failed", "error", err)
	}
	return out, nil
}
