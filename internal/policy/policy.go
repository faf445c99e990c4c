// Package policy decides, per file, whether an upload is allowed and which
// transfer strategy it gets. Resolution is pure: it must run before any
// storage or database interaction so a rejection has no side effects.
package policy

import (
	"fmt"

	"uploadgate/internal/models"
)

// FileDescriptor is the caller-declared shape of one file.
type FileDescriptor struct {
	Name string
	Type string // declared MIME type
	Size int64  // declared size in bytes
}

// Config is the subset of upload configuration the resolver needs.
type Config struct {
	AllowedTypes   []string // empty admits any type
	MaxSize        int64
	ChunkThreshold int64 // declared sizes above this go chunked
	ChunkSize      int64
}

// Decision is the resolver output for one file.
type Decision struct {
	Allowed   bool
	Reason    string // set when not allowed
	Strategy  models.UploadStrategy
	ChunkSize int64 // chunked only
	PartCount int   // chunked only
}

// Resolve applies the allow-list and size rules and picks the strategy.
func Resolve(file FileDescriptor, cfg Config) Decision {
	if file.Size <= 0 {
		return rejected("declared size must be positive")
	}
	if cfg.MaxSize > 0 && file.Size > cfg.MaxSize {
		return rejected(fmt.Sprintf("file size %d exceeds maximum %d", file.Size, cfg.MaxSize))
	}
	if len(cfg.AllowedTypes) > 0 && !typeAllowed(file.Type, cfg.AllowedTypes) {
		return rejected(fmt.Sprintf("content type %q is not allowed", file.Type))
	}

	if file.Size > cfg.ChunkThreshold {
		return Decision{
			Allowed:   true,
			Strategy:  models.StrategyChunked,
			ChunkSize: cfg.ChunkSize,
			PartCount: partCount(file.Size, cfg.ChunkSize),
		}
	}

	return Decision{Allowed: true, Strategy: models.StrategyDirect}
}

func rejected(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if t == contentType {
			return true
		}
	}
	return false
}

// partCount is ceil(size / chunkSize).
func partCount(size, chunkSize int64) int {
	return int((size + chunkSize - 1) / chunkSize)
}
