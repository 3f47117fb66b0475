package hybrid

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/boardroomlabs/ancestry/internal/retrieval"
)

// Graph reads candidate decisions from Neo4j. Decisions are :Decision
// nodes written by the ingestion path; this side only reads them.
type Graph struct {
	driver neo4j.DriverWithContext
}

// NewGraph connects to Neo4j and verifies connectivity.
func NewGraph(ctx context.Context, uri, username, password string) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Graph{driver: driver}, nil
}

// ListCandidates returns up to limit decisions excluding decisionID, most
// recently run first.
func (g *Graph) ListCandidates(ctx context.Context, decisionID string, limit int) ([]retrieval.Candidate, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			`MATCH (d:Decision)
			 WHERE d.id <> $id
			 RETURN d.id, d.name, d.summary, d.body_text, d.gate_decision, d.dqs,
			        d.final_recommendation, d.executive_summary, d.blockers,
			        d.required_revisions, d.last_run_at
			 ORDER BY d.last_run_at DESC, d.id
			 LIMIT $limit`,
			map[string]any{"id": decisionID, "limit": limit})
		if err != nil {
			return nil, err
		}

		var out []retrieval.Candidate
		for records.Next(ctx) {
			rec := records.Record()
			c := retrieval.Candidate{
				ID:               stringAt(rec, "d.id"),
				Name:             stringAt(rec, "d.name"),
				Summary:          stringAt(rec, "d.summary"),
				BodyText:         stringAt(rec, "d.body_text"),
				ExecutiveSummary: stringAt(rec, "d.executive_summary"),
			}
			if v, ok := rec.Get("d.gate_decision"); ok && v != nil {
				g := retrieval.GateDecision(v.(string))
				c.GateDecision = &g
			}
			if v, ok := rec.Get("d.dqs"); ok && v != nil {
				dqs := v.(float64)
				c.DQS = &dqs
			}
			if v, ok := rec.Get("d.final_recommendation"); ok && v != nil {
				fr := v.(string)
				c.FinalRecommendation = &fr
			}
			c.Blockers = stringsAt(rec, "d.blockers")
			c.RequiredRevisions = stringsAt(rec, "d.required_revisions")
			if v, ok := rec.Get("d.last_run_at"); ok && v != nil {
				if ms, ok := v.(int64); ok {
					c.LastRunAt = time.UnixMilli(ms).UTC()
				}
			}
			out = append(out, c)
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return result.([]retrieval.Candidate), nil
}

// Close releases the driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func stringAt(rec *neo4j.Record, key string) string {
	if v, ok := rec.Get(key); ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stringsAt(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
