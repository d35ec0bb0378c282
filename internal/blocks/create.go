package blocks

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"sync/atomic"

	"reblock-cli/internal/model"
)

var fallbackClientSeq atomic.Uint64

// NewClientID returns a random session-scoped block id.
func NewClientID() string {
	var b [10]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "blk-seq-" + base32Uint(fallbackClientSeq.Add(1))
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return "blk-" + strings.ToLower(enc.EncodeToString(b[:]))
}

func base32Uint(n uint64) string {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b[:]))
}

// CreateBlock builds a new block with fresh client ids for it and every inner block.
func CreateBlock(name string, attrs map[string]any, inner []model.Block) model.Block {
	b := model.Block{
		ClientID:    NewClientID(),
		Name:        normalizeName(name),
		Attributes:  cloneAttributes(attrs),
		InnerBlocks: AssignClientIDs(inner),
	}
	return b
}

// AssignClientIDs returns a deep copy of blocks where every node has a fresh client id.
func AssignClientIDs(blocks []model.Block) []model.Block {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]model.Block, len(blocks))
	for i, b := range blocks {
		b.ClientID = NewClientID()
		b.Attributes = cloneAttributes(b.Attributes)
		b.InnerBlocks = AssignClientIDs(b.InnerBlocks)
		out[i] = b
	}
	return out
}

func cloneAttributes(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
