package cypher

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"

	"github.com/graphtune/graphtune"
)

// ErrBadIdentifier is returned when a database, index, label, or property
// name contains characters outside the unquoted-identifier set.
var ErrBadIdentifier = errors.New("cypher: invalid identifier")

// Schema identifiers cannot be parameterized in Cypher DDL, so they are
// validated before interpolation.
var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrBadIdentifier, name)
	}

	return nil
}

// CreateDatabase declares a named database via the system database.
// Multi-database support is an engine capability; the engine's error is
// surfaced unchanged where it is unavailable.
func (b *Backend) CreateDatabase(ctx context.Context, name string) error {
	err := checkIdentifier(name)
	if err != nil {
		return err
	}

	session := b.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: "system"})
	defer func() { _ = session.Close(ctx) }()

	_, err = session.Run(ctx, fmt.Sprintf("CREATE DATABASE %s IF NOT EXISTS", name), nil)
	if err != nil {
		return fmt.Errorf("cypher: create database: %w", err)
	}

	b.log.Debug("created database", zap.String("name", name))

	return nil
}

// CreateIndex declares a single-property index on a label.
func (b *Backend) CreateIndex(ctx context.Context, name, label, property string) error {
	for _, id := range []string{name, label, property} {
		err := checkIdentifier(id)
		if err != nil {
			return err
		}
	}

	stmt := fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s)", name, label, property)

	_, err := b.Execute(ctx, stmt, nil)
	if err != nil {
		return err
	}

	b.log.Debug("created index",
		zap.String("name", name),
		zap.String("label", label),
		zap.String("property", property))

	return nil
}

// DropIndex removes an index by name.
func (b *Backend) DropIndex(ctx context.Context, name string) error {
	err := checkIdentifier(name)
	if err != nil {
		return err
	}

	_, err = b.Execute(ctx, fmt.Sprintf("DROP INDEX %s IF EXISTS", name), nil)

	return err
}

// AwaitIndexes blocks until all indexes are online. Index population is
// asynchronous, so plan capture right after CREATE INDEX needs this.
func (b *Backend) AwaitIndexes(ctx context.Context) error {
	_, err := b.Execute(ctx, "CALL db.awaitIndexes()", nil)

	return err
}

// ListIndexes returns the engine's current indexes.
func (b *Backend) ListIndexes(ctx context.Context) ([]graphtune.IndexInfo, error) {
	rows, err := b.Execute(ctx, "SHOW INDEXES", nil)
	if err != nil {
		return nil, err
	}

	indexes := make([]graphtune.IndexInfo, 0, len(rows))

	for _, row := range rows {
		indexes = append(indexes, graphtune.IndexInfo{
			Name:       asString(row["name"]),
			State:      asString(row["state"]),
			Type:       asString(row["type"]),
			Labels:     asStrings(row["labelsOrTypes"]),
			Properties: asStrings(row["properties"]),
		})
	}

	return indexes, nil
}

// Schema returns the engine's schema visualization: one virtual node per
// label and one virtual relationship per relationship type.
func (b *Backend) Schema(ctx context.Context) (*graphtune.SchemaGraph, error) {
	result, err := b.session.Run(ctx, "CALL db.schema.visualization", nil)
	if err != nil {
		return nil, fmt.Errorf("cypher: schema visualization failed: %w", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("cypher: failed to collect results: %w", err)
	}

	graph := &graphtune.SchemaGraph{}
	if len(records) == 0 {
		return graph, nil
	}

	record := records[0]

	// Virtual node element IDs map to labels so relationship endpoints can
	// be resolved by ID.
	labelsByID := make(map[string]string)

	if nodes, ok := record.Get("nodes"); ok {
		for _, v := range asList(nodes) {
			node, ok := v.(dbtype.Node)
			if !ok {
				continue
			}

			label := ""
			if len(node.Labels) > 0 {
				label = node.Labels[0]
			}

			labelsByID[node.ElementId] = label

			graph.Nodes = append(graph.Nodes, graphtune.SchemaNode{
				Label:      label,
				Properties: asStrings(node.Props["indexes"]),
			})
		}
	}

	if rels, ok := record.Get("relationships"); ok {
		for _, v := range asList(rels) {
			rel, ok := v.(dbtype.Relationship)
			if !ok {
				continue
			}

			graph.Relationships = append(graph.Relationships, graphtune.SchemaRelationship{
				Type: rel.Type,
				From: labelsByID[rel.StartElementId],
				To:   labelsByID[rel.EndElementId],
			})
		}
	}

	return graph, nil
}

// Counts returns node and relationship totals.
func (b *Backend) Counts(ctx context.Context) (graphtune.Counts, error) {
	var counts graphtune.Counts

	rows, err := b.Execute(ctx, "MATCH (n) RETURN count(n) AS total", nil)
	if err != nil {
		return counts, err
	}

	if len(rows) == 1 {
		counts.Nodes = asInt64(rows[0]["total"])
	}

	rows, err = b.Execute(ctx, "MATCH ()-[r]->() RETURN count(r) AS total", nil)
	if err != nil {
		return counts, err
	}

	if len(rows) == 1 {
		counts.Relationships = asInt64(rows[0]["total"])
	}

	return counts, nil
}

func asString(v any) string {
	s, _ := v.(string)

	return s
}

func asInt64(v any) int64 {
	n, _ := v.(int64)

	return n
}

func asList(v any) []any {
	l, _ := v.([]any)

	return l
}

func asStrings(v any) []string {
	list := asList(v)
	if len(list) == 0 {
		return nil
	}

	out := make([]string, 0, len(list))

	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}
