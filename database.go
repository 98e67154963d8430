// Package graphtune provides the core model for index-tuning playbooks:
// ordered Cypher statements executed against a graph database, optionally
// profiled, with expectations about rows and physical plan operators.
package graphtune

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/graphtune/graphtune/plan"
)

// ProfileMode selects how a statement's plan is captured.
type ProfileMode int

const (
	// ModeProfile executes the statement and collects runtime operator
	// statistics (db hits, rows, page cache hits).
	ModeProfile ProfileMode = iota

	// ModeExplain compiles the plan without executing the statement.
	ModeExplain
)

// String returns the statement prefix for the mode.
func (m ProfileMode) String() string {
	if m == ModeExplain {
		return "EXPLAIN"
	}

	return "PROFILE"
}

// Database defines the interface for graph database backends.
type Database interface {
	// Name returns the backend identifier (e.g., "cypher").
	Name() string

	// Execute runs a statement with parameters and returns the result rows.
	// Node and relationship values are flattened to "alias.property" keys.
	Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Transaction represents an active database transaction.
type Transaction interface {
	Execute(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	Commit(ctx context.Context) error

	Rollback(ctx context.Context) error
}

// Transactional is an optional interface for backends that support
// explicit transactions.
type Transactional interface {
	Database

	Begin(ctx context.Context) (Transaction, error)
}

// Profiler is an optional interface for backends that can capture the
// engine's execution plan for a statement.
type Profiler interface {
	Database

	// Profile runs the statement under the given mode and returns the plan
	// alongside any result rows. Under ModeExplain no rows are produced.
	Profile(ctx context.Context, query string, params map[string]any, mode ProfileMode) (*plan.Plan, []map[string]any, error)
}

// IndexInfo describes a single index reported by the engine.
type IndexInfo struct {
	Name       string
	State      string
	Type       string
	Labels     []string
	Properties []string
}

// SchemaNode is a node type in the engine's schema visualization.
type SchemaNode struct {
	Label      string
	Properties []string
}

// SchemaRelationship is a relationship type in the schema visualization.
type SchemaRelationship struct {
	Type string
	From string
	To   string
}

// SchemaGraph is the engine-reported schema summary.
type SchemaGraph struct {
	Nodes         []SchemaNode
	Relationships []SchemaRelationship
}

// Counts holds graph-wide entity totals.
type Counts struct {
	Nodes         int64
	Relationships int64
}

// Admin is an optional interface for administrative and introspection
// operations.
type Admin interface {
	Database

	// CreateDatabase declares a named database if the engine supports it.
	CreateDatabase(ctx context.Context, name string) error

	// CreateIndex declares a single-property index on a label.
	CreateIndex(ctx context.Context, name, label, property string) error

	// DropIndex removes an index by name.
	DropIndex(ctx context.Context, name string) error

	// AwaitIndexes blocks until all indexes are online.
	AwaitIndexes(ctx context.Context) error

	// ListIndexes returns the engine's current indexes.
	ListIndexes(ctx context.Context) ([]IndexInfo, error)

	// Schema returns the engine's schema visualization.
	Schema(ctx context.Context) (*SchemaGraph, error)

	// Counts returns node and relationship totals.
	Counts(ctx context.Context) (Counts, error)
}

// Factory creates a Database from connection configuration.
type Factory func(cfg ConnectionConfig) (Database, error)

// ConnectionConfig holds connection settings for a backend.
type ConnectionConfig struct {
	// Connection URI (e.g., "bolt://localhost:7687").
	URI string `yaml:"uri"`

	// Optional credentials (if not in URI).
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Named database to run against ("" means the engine default).
	Database string `yaml:"database,omitempty"`

	// Backend-specific options.
	Options map[string]any `yaml:"options,omitempty"`

	// Logger for statement-level debug logging. Not configurable from the
	// config file; wired by the caller.
	Logger *zap.Logger `yaml:"-"`
}

var backends = make(map[string]Factory)

// Register registers a backend factory by name.
func Register(name string, factory Factory) {
	backends[name] = factory
}

// New creates a backend instance by name.
func New(name string, cfg ConnectionConfig) (Database, error) { //nolint:ireturn
	factory, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}

	db, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	return &backendWrapper{db}, nil
}

// Registered returns the names of all registered backends.
func Registered() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}

	return names
}

// backendWrapper wraps a Database so optional capabilities can be reached
// through a single concrete type.
type backendWrapper struct {
	Database
}

// Begin delegates to the underlying backend if it supports transactions.
func (w *backendWrapper) Begin(ctx context.Context) (Transaction, error) { //nolint:ireturn
	if tx, ok := w.Database.(Transactional); ok {
		return tx.Begin(ctx)
	}

	return nil, ErrNoTransactionSupport
}

// Profile delegates to the underlying backend if it supports plan capture.
func (w *backendWrapper) Profile(
	ctx context.Context,
	query string,
	params map[string]any,
	mode ProfileMode,
) (*plan.Plan, []map[string]any, error) {
	if p, ok := w.Database.(Profiler); ok {
		return p.Profile(ctx, query, params, mode)
	}

	return nil, nil, ErrNoProfileSupport
}

// AsAdmin returns the backend's admin surface, unwrapping the registry
// wrapper if needed, or ErrNoAdminSupport.
func AsAdmin(db Database) (Admin, error) { //nolint:ireturn
	if a, ok := db.(Admin); ok {
		return a, nil
	}

	if w, ok := db.(*backendWrapper); ok {
		return AsAdmin(w.Database)
	}

	return nil, ErrNoAdminSupport
}

// CanProfile reports whether the backend captures execution plans,
// unwrapping the registry wrapper if needed.
func CanProfile(db Database) bool {
	if w, ok := db.(*backendWrapper); ok {
		return CanProfile(w.Database)
	}

	_, ok := db.(Profiler)

	return ok
}

// CanTransact reports whether the backend supports explicit transactions,
// unwrapping the registry wrapper if needed.
func CanTransact(db Database) bool {
	if w, ok := db.(*backendWrapper); ok {
		return CanTransact(w.Database)
	}

	_, ok := db.(Transactional)

	return ok
}
