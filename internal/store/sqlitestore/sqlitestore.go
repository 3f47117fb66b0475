// Package sqlitestore implements the datastore gateway on a local SQLite
// file, suitable for single-node deployments and integration tests.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// DB wraps a sql.DB connection to the ancestry SQLite database.
type DB struct {
	*sql.DB
	Path string
}

// Open opens (or creates) the database at path, configures pragmas, and
// runs migrations.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return initDB(sqlDB, path)
}

// OpenMemory opens an in-memory database for testing.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return initDB(sqlDB, ":memory:")
}

func initDB(sqlDB *sql.DB, path string) (*DB, error) {
	db := &DB{DB: sqlDB, Path: path}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// PutCandidate inserts or replaces a decision row. Used by the ingestion
// path and test seeding; the retriever itself only reads candidates.
func (db *DB) PutCandidate(ctx context.Context, c retrieval.Candidate) error {
	blockers, err := json.Marshal(c.Blockers)
	if err != nil {
		return fmt.Errorf("marshal blockers: %w", err)
	}
	revisions, err := json.Marshal(c.RequiredRevisions)
	if err != nil {
		return fmt.Errorf("marshal revisions: %w", err)
	}

	var gate *string
	if c.GateDecision != nil {
		g := string(*c.GateDecision)
		gate = &g
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO decisions (id, name, summary, body_text, gate_decision, dqs,
			final_recommendation, executive_summary, blockers, required_revisions, last_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			summary = excluded.summary,
			body_text = excluded.body_text,
			gate_decision = excluded.gate_decision,
			dqs = excluded.dqs,
			final_recommendation = excluded.final_recommendation,
			executive_summary = excluded.executive_summary,
			blockers = excluded.blockers,
			required_revisions = excluded.required_revisions,
			last_run_at = excluded.last_run_at
	`, c.ID, c.Name, c.Summary, c.BodyText, gate, c.DQS,
		c.FinalRecommendation, c.ExecutiveSummary, string(blockers), string(revisions),
		c.LastRunAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put candidate: %w", err)
	}
	return nil
}

// ListCandidates returns up to limit decisions excluding decisionID,
// most recently run first.
func (db *DB) ListCandidates(ctx context.Context, decisionID string, limit int) ([]retrieval.Candidate, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, summary, body_text, gate_decision, dqs,
			final_recommendation, executive_summary, blockers, required_revisions, last_run_at
		FROM decisions
		WHERE id <> ?
		ORDER BY last_run_at DESC, id
		LIMIT ?
	`, decisionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []retrieval.Candidate
	for rows.Next() {
		var c retrieval.Candidate
		var gate, recommendation sql.NullString
		var dqs sql.NullFloat64
		var blockers, revisions string
		var lastRun int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Summary, &c.BodyText, &gate, &dqs,
			&recommendation, &c.ExecutiveSummary, &blockers, &revisions, &lastRun); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if gate.Valid {
			g := retrieval.GateDecision(gate.String)
			c.GateDecision = &g
		}
		if dqs.Valid {
			v := dqs.Float64
			c.DQS = &v
		}
		if recommendation.Valid {
			r := recommendation.String
			c.FinalRecommendation = &r
		}
		if err := json.Unmarshal([]byte(blockers), &c.Blockers); err != nil {
			return nil, fmt.Errorf("unmarshal blockers for %s: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(revisions), &c.RequiredRevisions); err != nil {
			return nil, fmt.Errorf("unmarshal revisions for %s: %w", c.ID, err)
		}
		c.LastRunAt = time.UnixMilli(lastRun).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetEmbedding returns the cached record for a decision, or nil.
func (db *DB) GetEmbedding(ctx context.Context, decisionID string) (*retrieval.EmbeddingRecord, error) {
	row := db.QueryRowContext(ctx, `
		SELECT decision_id, source_hash, provider, model, dimensions, vector, updated_at
		FROM decision_embeddings WHERE decision_id = ?
	`, decisionID)

	rec, err := scanEmbedding(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	return rec, nil
}

// ListEmbeddings returns cached records for the given ids, keyed by id.
func (db *DB) ListEmbeddings(ctx context.Context, decisionIDs []string) (map[string]retrieval.EmbeddingRecord, error) {
	out := make(map[string]retrieval.EmbeddingRecord)
	if len(decisionIDs) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(decisionIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(decisionIDs))
	for i, id := range decisionIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, `
		SELECT decision_id, source_hash, provider, model, dimensions, vector, updated_at
		FROM decision_embeddings WHERE decision_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanEmbedding(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out[rec.DecisionID] = *rec
	}
	return out, rows.Err()
}

// UpsertEmbedding stores or replaces the embedding record for a decision.
func (db *DB) UpsertEmbedding(ctx context.Context, record retrieval.EmbeddingRecord) error {
	blob := encodeVector(record.Vector)
	_, err := db.ExecContext(ctx, `
		INSERT INTO decision_embeddings (decision_id, source_hash, provider, model, dimensions, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(decision_id) DO UPDATE SET
			source_hash = excluded.source_hash,
			provider = excluded.provider,
			model = excluded.model,
			dimensions = excluded.dimensions,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`, record.DecisionID, record.SourceHash, record.Provider, record.Model,
		record.Dimensions, blob, record.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

func scanEmbedding(scan func(dest ...any) error) (*retrieval.EmbeddingRecord, error) {
	var rec retrieval.EmbeddingRecord
	var blob []byte
	var updated int64
	if err := scan(&rec.DecisionID, &rec.SourceHash, &rec.Provider, &rec.Model,
		&rec.Dimensions, &blob, &updated); err != nil {
		return nil, err
	}
	rec.Vector = decodeVector(blob)
	rec.UpdatedAt = time.UnixMilli(updated).UTC()
	return &rec, nil
}

// encodeVector packs a []float32 into a little-endian BLOB, 4 bytes per
// component.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	n := len(buf) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

var _ retrieval.Store = (*DB)(nil)
