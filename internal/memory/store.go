package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"aura/internal/embedding"
	"aura/internal/logging"

	_ "modernc.org/sqlite"
)

// =============================================================================
// MEMORY STORE (SQLite)
// =============================================================================

// Store persists memory nodes in SQLite and answers similarity searches.
// Embeddings are computed on write and stored alongside the row; search
// embeds the query and scores all embedded rows by cosine similarity.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	dbPath   string
	embedder embedding.Engine

	now func() time.Time
}

// SearchResult is one similarity hit, scored descending by the caller.
type SearchResult struct {
	Node       *Node
	Similarity float64
}

// Stats is an observability snapshot of the store.
type Stats struct {
	TotalNodes   int
	ByType       map[NodeType]int
	AvgRelevance float64
	OldestNode   time.Time
}

// NewStore opens (creating if needed) the database at path. embedder may be
// nil, in which case nodes are stored without embeddings and similarity
// search returns nothing.
func NewStore(path string, embedder embedding.Engine) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path, embedder: embedder, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize applies pragmas and creates the schema.
func (s *Store) initialize() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS memory_nodes (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		node_type TEXT NOT NULL,
		tags TEXT,
		created DATETIME NOT NULL,
		last_accessed DATETIME NOT NULL,
		relevance REAL DEFAULT 1.0,
		access_count INTEGER DEFAULT 0,
		embedding TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_type ON memory_nodes(node_type);
	CREATE INDEX IF NOT EXISTS idx_nodes_created ON memory_nodes(created);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Memory("store initialized at %s", s.dbPath)
	return nil
}

// Upsert writes a node, computing its embedding first if absent. Embedding
// failures degrade to storing the node without one.
func (s *Store) Upsert(ctx context.Context, node *Node) error {
	timer := logging.StartTimer(logging.CategoryMemory, "Upsert")
	defer timer.Stop()

	if err := node.Validate(); err != nil {
		return err
	}

	if node.Embedding == nil && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, node.Content)
		if err != nil {
			logging.Get(logging.CategoryMemory).Warn("embedding failed, storing without vector: %v", err)
		} else {
			node.Embedding = vec
		}
	}

	tagsJSON, _ := json.Marshal(node.Tags)
	var embJSON []byte
	if node.Embedding != nil {
		embJSON, _ = json.Marshal(node.Embedding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO memory_nodes
		(id, content, node_type, tags, created, last_accessed, relevance, access_count, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.ID, node.Content, string(node.Type), string(tagsJSON),
		node.Created.UTC(), node.LastAccessed.UTC(), node.Relevance,
		node.AccessCount, nullableString(embJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert node: %w", err)
	}

	logging.MemoryDebug("upserted node %s (%s, %d bytes)", node.ID, node.Type, len(node.Content))
	return nil
}

// Get loads a node by id. Returns (nil, nil) when absent.
func (s *Store) Get(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, content, node_type, tags, created, last_accessed, relevance, access_count, embedding
		FROM memory_nodes WHERE id = ?`, id)

	node, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return node, err
}

// Delete removes a node by id. Deleting a missing node is not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM memory_nodes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

// TouchAccess bumps a node's access count and last-accessed time.
func (s *Store) TouchAccess(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE memory_nodes SET access_count = access_count + 1, last_accessed = ?
		WHERE id = ?`, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch node: %w", err)
	}
	return nil
}

// Search embeds the query text and returns up to maxResults nodes scoring
// at least minScore, descending by similarity.
func (s *Store) Search(ctx context.Context, query string, maxResults int, minScore float64) ([]SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.SearchByVector(vec, maxResults, minScore)
}

// SearchByVector scores all embedded rows against vec by cosine similarity.
func (s *Store) SearchByVector(vec []float32, maxResults int, minScore float64) ([]SearchResult, error) {
	timer := logging.StartTimer(logging.CategoryMemory, "SearchByVector")
	defer timer.StopWithThreshold(100 * time.Millisecond)

	if maxResults <= 0 {
		maxResults = 10
	}

	nodes, err := s.allEmbedded()
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(nodes))
	for _, n := range nodes {
		sim, err := embedding.CosineSimilarity(vec, n.Embedding)
		if err != nil {
			// Dimension mismatch from a provider change; skip, don't fail.
			continue
		}
		if sim >= minScore {
			results = append(results, SearchResult{Node: n, Similarity: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	logging.MemoryDebug("vector search: %d candidates, %d hits", len(nodes), len(results))
	return results, nil
}

// All returns every stored node. Used by the maintenance sweep.
func (s *Store) All() ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, content, node_type, tags, created, last_accessed, relevance, access_count, embedding
		FROM memory_nodes ORDER BY created ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// Count returns the stored node count.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM memory_nodes").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return n, nil
}

// Stats summarizes the store contents.
func (s *Store) Stats() (Stats, error) {
	nodes, err := s.All()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalNodes: len(nodes), ByType: make(map[NodeType]int)}
	var relevanceSum float64
	for i, n := range nodes {
		stats.ByType[n.Type]++
		relevanceSum += n.Relevance
		if i == 0 || n.Created.Before(stats.OldestNode) {
			stats.OldestNode = n.Created
		}
	}
	if len(nodes) > 0 {
		stats.AvgRelevance = relevanceSum / float64(len(nodes))
	}
	return stats, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// allEmbedded returns nodes that have an embedding.
func (s *Store) allEmbedded() ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, content, node_type, tags, created, last_accessed, relevance, access_count, embedding
		FROM memory_nodes WHERE embedding IS NOT NULL ORDER BY created ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedded nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*Node, error) {
	var (
		node     Node
		nodeType string
		tagsJSON sql.NullString
		embJSON  sql.NullString
	)
	err := row.Scan(&node.ID, &node.Content, &nodeType, &tagsJSON,
		&node.Created, &node.LastAccessed, &node.Relevance, &node.AccessCount, &embJSON)
	if err != nil {
		return nil, err
	}

	node.Type = NodeType(nodeType)
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &node.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", node.ID, err)
		}
	}
	if embJSON.Valid && embJSON.String != "" {
		if err := json.Unmarshal([]byte(embJSON.String), &node.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", node.ID, err)
		}
	}
	return &node, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
