package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/crdbl/crdbl/pkg/platform/sentinel"
)

// Memory is an in-process content store for tests and local development.
// Content-addressed like the real thing, but with a sha256 pseudo-CID.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]string
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string]string)}
}

func (m *Memory) Put(_ context.Context, content string) (string, error) {
	sum := sha256.Sum256([]byte(content))
	cid := "mem-" + hex.EncodeToString(sum[:8])
	m.mu.Lock()
	m.blobs[cid] = content
	m.mu.Unlock()
	return cid, nil
}

func (m *Memory) Get(_ context.Context, cid string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.blobs[cid]
	if !ok {
		return "", fmt.Errorf("content %q: %w", cid, sentinel.ErrNotFound)
	}
	return content, nil
}

// Drop removes a blob, simulating content that was garbage collected out from
// under a credential.
func (m *Memory) Drop(cid string) {
	m.mu.Lock()
	delete(m.blobs, cid)
	m.mu.Unlock()
}
