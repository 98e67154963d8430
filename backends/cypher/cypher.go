// Package cypher provides a graphtune backend for Cypher execution against
// Neo4j, including PROFILE/EXPLAIN plan capture and the administrative
// statements the tuning playbooks use (index DDL, schema introspection).
package cypher

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"

	"github.com/graphtune/graphtune"
	"github.com/graphtune/graphtune/plan"
)

//nolint:gochecknoinits // Backend self-registration pattern
func init() {
	graphtune.Register("cypher", New)
}

// Backend implements graphtune.Database for Cypher statements against Neo4j.
type Backend struct {
	driver  neo4j.DriverWithContext
	session neo4j.SessionWithContext
	db      string
	log     *zap.Logger
}

// New creates a new Cypher backend from the given configuration.
func New(cfg graphtune.ConnectionConfig) (graphtune.Database, error) { //nolint:ireturn // Factory returns interface per Database pattern
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("cypher: failed to create driver: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	b := &Backend{
		driver: driver,
		db:     cfg.Database,
		log:    log,
	}

	ctx := context.Background()

	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		_ = driver.Close(ctx)

		return nil, fmt.Errorf("cypher: failed to connect: %w", err)
	}

	sessionCfg := neo4j.SessionConfig{
		AccessMode: neo4j.AccessModeWrite,
	}
	if b.db != "" {
		sessionCfg.DatabaseName = b.db
	}

	b.session = driver.NewSession(ctx, sessionCfg)

	return b, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return "cypher"
}

// Execute runs a single Cypher statement and returns the result rows.
// Statements are forwarded verbatim; node and relationship values are
// flattened so properties are accessible as "alias.property" keys.
func (b *Backend) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	start := time.Now()

	result, err := b.session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("cypher: query execution failed: %w", err)
	}

	rows, err := collectRows(ctx, result)
	if err != nil {
		return nil, err
	}

	b.log.Debug("executed statement",
		zap.String("query", query),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))

	return rows, nil
}

// Profile runs the statement under PROFILE or EXPLAIN and returns the
// engine-reported plan with any result rows. EXPLAIN compiles the plan
// without executing, so it produces no rows.
func (b *Backend) Profile(
	ctx context.Context,
	query string,
	params map[string]any,
	mode graphtune.ProfileMode,
) (*plan.Plan, []map[string]any, error) {
	prefixed := mode.String() + " " + query

	result, err := b.session.Run(ctx, prefixed, params)
	if err != nil {
		return nil, nil, fmt.Errorf("cypher: plan capture failed: %w", err)
	}

	rows, err := collectRows(ctx, result)
	if err != nil {
		return nil, nil, err
	}

	summary, err := result.Consume(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("cypher: failed to consume result summary: %w", err)
	}

	var pl *plan.Plan

	if mode == graphtune.ModeProfile {
		pl = plan.FromProfile(summary.Profile())
	} else {
		pl = plan.FromPlan(summary.Plan())
	}

	if pl != nil {
		b.log.Debug("captured plan",
			zap.String("mode", mode.String()),
			zap.Strings("operators", pl.Operators()),
			zap.Int64("dbHits", pl.TotalDBHits()))
	}

	return pl, rows, nil
}

// collectRows drains a result into flattened row maps.
func collectRows(ctx context.Context, result neo4j.ResultWithContext) ([]map[string]any, error) {
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("cypher: failed to collect results: %w", err)
	}

	rows := make([]map[string]any, len(records))
	for i, record := range records {
		rows[i] = flattenRecord(record.Keys, record.Values)
	}

	return rows, nil
}

// flattenRecord converts a Neo4j record into a flat map. Nodes and
// relationships are expanded so their properties are accessible as
// "alias.property" (e.g., p.name, r.roles).
func flattenRecord(keys []string, values []any) map[string]any {
	result := make(map[string]any)

	for i, key := range keys {
		flattenValue(result, key, values[i])
	}

	return result
}

func flattenValue(result map[string]any, key string, value any) {
	switch v := value.(type) {
	case dbtype.Node:
		for prop, propVal := range v.Props {
			result[key+"."+prop] = propVal
		}

		result[key+".labels"] = v.Labels
		result[key+".elementId"] = v.ElementId

	case dbtype.Relationship:
		for prop, propVal := range v.Props {
			result[key+"."+prop] = propVal
		}

		result[key+".type"] = v.Type
		result[key+".elementId"] = v.ElementId

	case dbtype.Path:
		result[key+".nodes"] = v.Nodes
		result[key+".relationships"] = v.Relationships

	case map[string]any:
		for k, val := range v {
			result[key+"."+k] = val
		}

	default:
		result[key] = v
	}
}

// Close releases the database connection.
func (b *Backend) Close() error {
	ctx := context.Background()

	if b.session != nil {
		err := b.session.Close(ctx)
		if err != nil {
			return fmt.Errorf("cypher: failed to close session: %w", err)
		}
	}

	if b.driver != nil {
		err := b.driver.Close(ctx)
		if err != nil {
			return fmt.Errorf("cypher: failed to close driver: %w", err)
		}
	}

	return nil
}

// Begin starts a new explicit transaction.
func (b *Backend) Begin(ctx context.Context) (graphtune.Transaction, error) { //nolint:ireturn // Interface return per Transactional contract
	tx, err := b.session.BeginTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("cypher: failed to begin transaction: %w", err)
	}

	return &Transaction{tx: tx}, nil
}

// Transaction wraps a Neo4j transaction to implement graphtune.Transaction.
type Transaction struct {
	tx neo4j.ExplicitTransaction
}

// Execute runs a Cypher statement within this transaction.
func (t *Transaction) Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("cypher: query execution failed: %w", err)
	}

	return collectRows(ctx, result)
}

// Commit commits the transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction.
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// Ensure Backend implements the capability interfaces.
var (
	_ graphtune.Database      = (*Backend)(nil)
	_ graphtune.Transactional = (*Backend)(nil)
	_ graphtune.Profiler      = (*Backend)(nil)
	_ graphtune.Admin         = (*Backend)(nil)
	_ graphtune.Transaction   = (*Transaction)(nil)
)
