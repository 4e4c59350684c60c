package fscache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const entrySuffix = ".json"

// buildFilename renders the on-disk name for one cache entry:
// {function}_{8-hex-arg-hash}_{unix-seconds}.json
func buildFilename(name, hash string, unixSec int64) string {
	return fmt.Sprintf("%s_%s_%d%s", name, hash, unixSec, entrySuffix)
}

// parseFilename splits an entry filename back into its parts. The function
// name may itself contain underscores, so the hash and timestamp are cut from
// the right. Files that do not match the entry layout report ok=false.
func parseFilename(base string) (name, hash string, unixSec int64, ok bool) {
	if !strings.HasSuffix(base, entrySuffix) {
		return "", "", 0, false
	}
	trimmed := strings.TrimSuffix(base, entrySuffix)

	tsCut := strings.LastIndexByte(trimmed, '_')
	if tsCut <= 0 {
		return "", "", 0, false
	}
	sec, err := strconv.ParseInt(trimmed[tsCut+1:], 10, 64)
	if err != nil {
		return "", "", 0, false
	}

	hashCut := strings.LastIndexByte(trimmed[:tsCut], '_')
	if hashCut <= 0 {
		return "", "", 0, false
	}
	hash = trimmed[hashCut+1 : tsCut]
	if !isArgHash(hash) {
		return "", "", 0, false
	}

	name = trimmed[:hashCut]
	if name == "" {
		return "", "", 0, false
	}
	return name, hash, sec, true
}

// isArgHash reports whether s looks like an 8-char lowercase hex digest.
func isArgHash(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// hashArgs derives the argument digest from the JSON encoding of args.
// encoding/json writes map keys in sorted order, so equal argument bundles
// always produce equal digests.
func hashArgs(args any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode cache key args: %w", err)
	}
	return hashBytes(data), nil
}

func hashString(s string) string {
	return hashBytes([]byte(s))
}

func hashBytes(data []byte) string {
	h := xxhash.New()
	_, _ = h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())[:8]
}
