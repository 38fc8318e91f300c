// Package cache memoizes non-streaming answers by normalized question,
// either in process (LRU with TTL) or in Redis.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key normalizes a question (trimmed, lowercased) and hashes it.
func Key(question string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(question))))
	return hex.EncodeToString(sum[:])
}

func hitRate(hits, misses int64) string {
	total := hits + misses
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(hits)/float64(total)*100)
}
