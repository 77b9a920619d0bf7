package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
)

// HNSW graph parameters
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	galleryMetadataVersion = 1
)

// Match is the closest enrolled student for a face.
type Match struct {
	StudentID   int64   `json:"student_id"`
	EmbeddingID int64   `json:"embedding_id"`
	Similarity  float64 `json:"similarity"`
}

// galleryMetadata validates a persisted graph against the store.
type galleryMetadata struct {
	Count   int   `json:"count"`
	MaxID   int64 `json:"max_id"`
	Version int   `json:"version"`
}

// Gallery is an in-memory similarity index over enrolled student embeddings.
type Gallery struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[int64]
	entries   map[int64]database.StoredEmbedding // embedding ID -> embedding
	dim       int
	threshold float64
}

// NewGallery creates an empty gallery. Matches must exceed threshold.
func NewGallery(threshold float64) *Gallery {
	if threshold <= 0 {
		threshold = constants.DefaultRecognitionThreshold
	}
	return &Gallery{
		entries:   make(map[int64]database.StoredEmbedding),
		threshold: threshold,
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance
	return g
}

// Threshold returns the minimum similarity a match must exceed.
func (g *Gallery) Threshold() float64 {
	return g.threshold
}

// Build replaces the index with the given embeddings.
func (g *Gallery) Build(embeddings []database.StoredEmbedding) error {
	graph := newGraph()
	entries := make(map[int64]database.StoredEmbedding, len(embeddings))
	dim := 0
	for _, emb := range embeddings {
		if len(emb.Embedding) == 0 {
			continue
		}
		if dim == 0 {
			dim = len(emb.Embedding)
		}
		if len(emb.Embedding) != dim {
			return fmt.Errorf("embedding %d has dimension %d, expected %d", emb.ID, len(emb.Embedding), dim)
		}
		graph.Add(hnsw.MakeNode(emb.ID, emb.Embedding))
		entries[emb.ID] = emb
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.graph = graph
	g.entries = entries
	g.dim = dim
	return nil
}

// Load builds the index from the store, reusing the graph persisted at path
// when it still matches the stored embeddings.
func (g *Gallery) Load(ctx context.Context, store database.EmbeddingStore, path string) error {
	embeddings, err := store.ListEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}

	if path != "" && g.loadGraph(path, embeddings) {
		return nil
	}
	if err := g.Build(embeddings); err != nil {
		return err
	}
	if path != "" {
		if err := g.Save(path); err != nil {
			return err
		}
	}
	return nil
}

// Add indexes a newly enrolled embedding.
func (g *Gallery) Add(emb database.StoredEmbedding) error {
	if len(emb.Embedding) == 0 {
		return fmt.Errorf("embedding %d is empty", emb.ID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dim != 0 && len(emb.Embedding) != g.dim {
		return fmt.Errorf("embedding has dimension %d, expected %d", len(emb.Embedding), g.dim)
	}
	if _, exists := g.entries[emb.ID]; exists {
		return nil
	}
	if g.graph == nil {
		g.graph = newGraph()
	}
	g.graph.Add(hnsw.MakeNode(emb.ID, emb.Embedding))
	g.entries[emb.ID] = emb
	g.dim = len(emb.Embedding)
	return nil
}

// checkDim reports whether an embedding of n dimensions can join the index.
func (g *Gallery) checkDim(n int) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.dim != 0 && n != g.dim {
		return fmt.Errorf("embedding has dimension %d, expected %d", n, g.dim)
	}
	return nil
}

// Len returns the number of indexed embeddings.
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Match returns the best matching student and whether its similarity exceeds
// the threshold. The match is nil when the gallery is empty.
func (g *Gallery) Match(query []float32) (*Match, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.graph == nil || len(g.entries) == 0 || len(query) != g.dim {
		return nil, false
	}

	var best *Match
	for _, n := range g.graph.Search(query, constants.GallerySearchCandidates) {
		emb, ok := g.entries[n.Key]
		if !ok {
			continue
		}
		sim := CosineSimilarity(query, emb.Embedding)
		if best == nil || sim > best.Similarity {
			best = &Match{StudentID: emb.StudentID, EmbeddingID: emb.ID, Similarity: sim}
		}
	}
	if best == nil {
		return nil, false
	}
	return best, best.Similarity > g.threshold
}

// Save persists the graph and its metadata next to each other.
func (g *Gallery) Save(path string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.graph == nil || len(g.entries) == 0 {
		// Best-effort cleanup of a stale index.
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		return nil
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create gallery index file: %w", err)
	}
	defer f.Close()

	if err := g.graph.Export(f); err != nil {
		return fmt.Errorf("failed to export gallery graph: %w", err)
	}

	meta := galleryMetadata{Count: len(g.entries), Version: galleryMetadataVersion}
	for id := range g.entries {
		meta.MaxID = max(meta.MaxID, id)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", data, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// loadGraph imports the persisted graph if its metadata matches embeddings.
func (g *Gallery) loadGraph(path string, embeddings []database.StoredEmbedding) bool {
	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return false
	}
	var meta galleryMetadata
	if err := json.Unmarshal(data, &meta); err != nil || meta.Version != galleryMetadataVersion {
		return false
	}

	entries := make(map[int64]database.StoredEmbedding, len(embeddings))
	var maxID int64
	dim := 0
	for _, emb := range embeddings {
		if len(emb.Embedding) == 0 {
			continue
		}
		entries[emb.ID] = emb
		maxID = max(maxID, emb.ID)
		dim = len(emb.Embedding)
	}
	if meta.Count != len(entries) || meta.MaxID != maxID {
		return false
	}

	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return false
	}
	defer f.Close()

	graph := newGraph()
	if err := graph.Import(f); err != nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.graph = graph
	g.entries = entries
	g.dim = dim
	return true
}

// CosineSimilarity computes the cosine similarity between two embedding vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
