package verify

import (
	"strings"
	"sync"

	"github.com/fathia/miniapp/internal/models"
)

// Registry remembers verified addresses for the lifetime of the process.
type Registry struct {
	mu      sync.RWMutex
	records map[string]models.VerificationRecord
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]models.VerificationRecord)}
}

func (r *Registry) Put(rec models.VerificationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[strings.ToLower(rec.SubjectAddress)] = rec
}

func (r *Registry) Get(address string) (models.VerificationRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[strings.ToLower(address)]
	return rec, ok
}

func (r *Registry) IsVerified(address string) bool {
	rec, ok := r.Get(address)
	return ok && rec.Verified
}
