package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github/itish2003/docqa/models"
)

// VectorStore is the persistence backend behind a VectorIndex.
type VectorStore interface {
	// Add writes all records or none of them.
	Add(ctx context.Context, records []models.IndexedRecord) error
	// Query returns up to k records closest to vector, most similar first.
	// An empty scopeID searches every record.
	Query(ctx context.Context, vector []float32, scopeID string, k int) ([]models.SearchResult, error)
	// Exists reports whether at least one record belongs to scopeID, or to
	// any scope when scopeID is empty.
	Exists(ctx context.Context, scopeID string) (bool, error)
	// DeleteWhere removes records whose string metadata key equals value.
	DeleteWhere(ctx context.Context, key, value string) error
	DeleteAll(ctx context.Context) error
}

type memoryRecord struct {
	record    models.IndexedRecord
	magnitude float64
}

// MemoryStore is an in-process VectorStore using brute-force cosine similarity.
// Records live only as long as the process.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   []memoryRecord
}

func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{dimension: dimension}
}

func (s *MemoryStore) Add(_ context.Context, records []models.IndexedRecord) error {
	for _, r := range records {
		if s.dimension > 0 && len(r.Vector) != s.dimension {
			return fmt.Errorf("record %s has dimension %d, store expects %d", r.ID, len(r.Vector), s.dimension)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records = append(s.records, memoryRecord{record: r, magnitude: magnitude(r.Vector)})
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, vector []float32, scopeID string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	qm := magnitude(vector)
	if qm == 0 {
		return nil, fmt.Errorf("query vector has zero magnitude")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.SearchResult, 0, len(s.records))
	for _, r := range s.records {
		if scopeID != "" && metadataString(r.record.Metadata, models.MetaScopeID) != scopeID {
			continue
		}
		if r.magnitude == 0 || len(r.record.Vector) != len(vector) {
			continue
		}
		results = append(results, models.SearchResult{
			Text:     r.record.Text,
			Metadata: r.record.Metadata,
			Score:    dot(r.record.Vector, vector) / (r.magnitude * qm),
		})
	}
	// Stable keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) Exists(_ context.Context, scopeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scopeID == "" {
		return len(s.records) > 0, nil
	}
	for _, r := range s.records {
		if metadataString(r.record.Metadata, models.MetaScopeID) == scopeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) DeleteWhere(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if metadataString(r.record.Metadata, key) != value {
			kept = append(kept, r)
		}
	}
	// Drop references held past the new length.
	for i := len(kept); i < len(s.records); i++ {
		s.records[i] = memoryRecord{}
	}
	s.records = kept
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func metadataString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func magnitude(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
