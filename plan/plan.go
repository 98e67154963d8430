// Package plan models the execution plans a graph engine reports for
// EXPLAIN and PROFILE statements: an operator tree with per-operator row
// and hit statistics, plus classification of the physical access operators
// (full scan, label scan, index seek, ...).
package plan

import (
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Plan is an engine-reported execution plan.
type Plan struct {
	// Root is the top of the operator tree (the final projection).
	Root *Operator

	// Profiled is true when the plan carries runtime statistics.
	Profiled bool
}

// Operator is one node of the plan tree.
type Operator struct {
	// Type is the physical operator name (e.g., "NodeIndexSeek").
	Type string

	// Identifiers introduced by the operator.
	Identifiers []string

	// Arguments are engine-specific operator details.
	Arguments map[string]any

	// EstimatedRows is the planner's cardinality estimate.
	EstimatedRows float64

	// Runtime statistics; zero unless the plan was profiled.
	Records         int64
	DBHits          int64
	PageCacheHits   int64
	PageCacheMisses int64

	Children []*Operator
}

// Kind classifies physical access operators.
type Kind int

const (
	KindOther Kind = iota
	KindFullScan
	KindLabelScan
	KindIndexSeek
	KindIndexScan
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindFullScan:
		return "full scan"
	case KindLabelScan:
		return "label scan"
	case KindIndexSeek:
		return "index seek"
	case KindIndexScan:
		return "index scan"
	default:
		return "other"
	}
}

// normalize strips the runtime suffix some engines append to operator
// names (e.g., "NodeIndexSeek@neo4j").
func normalize(operator string) string {
	if i := strings.IndexByte(operator, '@'); i >= 0 {
		return operator[:i]
	}

	return operator
}

// KindOf classifies an operator name.
func KindOf(operator string) Kind {
	op := normalize(operator)

	switch {
	case op == "AllNodesScan":
		return KindFullScan
	case strings.HasPrefix(op, "NodeByLabel") || strings.HasPrefix(op, "UnionNodeByLabels"):
		return KindLabelScan
	case strings.Contains(op, "IndexSeek"):
		return KindIndexSeek
	case strings.Contains(op, "IndexScan") ||
		strings.Contains(op, "IndexContainsScan") ||
		strings.Contains(op, "IndexEndsWithScan"):
		return KindIndexScan
	default:
		return KindOther
	}
}

// FromPlan converts an EXPLAIN plan reported by the driver.
func FromPlan(p neo4j.Plan) *Plan {
	if p == nil {
		return nil
	}

	return &Plan{Root: fromPlanNode(p)}
}

func fromPlanNode(p neo4j.Plan) *Operator {
	op := &Operator{
		Type:          normalize(p.Operator()),
		Identifiers:   p.Identifiers(),
		Arguments:     p.Arguments(),
		EstimatedRows: estimatedRows(p.Arguments()),
	}

	for _, child := range p.Children() {
		op.Children = append(op.Children, fromPlanNode(child))
	}

	return op
}

// FromProfile converts a PROFILE plan reported by the driver.
func FromProfile(p neo4j.ProfiledPlan) *Plan {
	if p == nil {
		return nil
	}

	return &Plan{Root: fromProfileNode(p), Profiled: true}
}

func fromProfileNode(p neo4j.ProfiledPlan) *Operator {
	// Page-cache counters read zero when the server did not report stats.
	op := &Operator{
		Type:            normalize(p.Operator()),
		Identifiers:     p.Identifiers(),
		Arguments:       p.Arguments(),
		EstimatedRows:   estimatedRows(p.Arguments()),
		Records:         p.Records(),
		DBHits:          p.DbHits(),
		PageCacheHits:   p.PageCacheHits(),
		PageCacheMisses: p.PageCacheMisses(),
	}

	for _, child := range p.Children() {
		op.Children = append(op.Children, fromProfileNode(child))
	}

	return op
}

func estimatedRows(args map[string]any) float64 {
	if args == nil {
		return 0
	}

	if v, ok := args["EstimatedRows"].(float64); ok {
		return v
	}

	return 0
}

// Operators returns all operator names in the tree, pre-order.
func (p *Plan) Operators() []string {
	if p == nil || p.Root == nil {
		return nil
	}

	var names []string

	p.Root.walk(func(op *Operator) {
		names = append(names, op.Type)
	})

	return names
}

// Has reports whether any operator in the tree matches name. Matching is
// exact on the normalized operator type.
func (p *Plan) Has(name string) bool {
	if p == nil || p.Root == nil {
		return false
	}

	found := false

	p.Root.walk(func(op *Operator) {
		if op.Type == normalize(name) {
			found = true
		}
	})

	return found
}

// HasKind reports whether any operator in the tree has the given kind.
func (p *Plan) HasKind(kind Kind) bool {
	if p == nil || p.Root == nil {
		return false
	}

	found := false

	p.Root.walk(func(op *Operator) {
		if KindOf(op.Type) == kind {
			found = true
		}
	})

	return found
}

// TotalDBHits sums db hits across the tree.
func (p *Plan) TotalDBHits() int64 {
	if p == nil || p.Root == nil {
		return 0
	}

	var total int64

	p.Root.walk(func(op *Operator) {
		total += op.DBHits
	})

	return total
}

// CacheHitRatio returns page-cache hits over total page-cache accesses
// across the tree, or 0 when no page-cache stats were reported.
func (p *Plan) CacheHitRatio() float64 {
	if p == nil || p.Root == nil {
		return 0
	}

	var hits, misses int64

	p.Root.walk(func(op *Operator) {
		hits += op.PageCacheHits
		misses += op.PageCacheMisses
	})

	if hits+misses == 0 {
		return 0
	}

	return float64(hits) / float64(hits+misses)
}

// AccessKind returns the most specific access-operator kind in the tree:
// index seek beats index scan beats label scan beats full scan.
func (p *Plan) AccessKind() Kind {
	best := KindOther

	if p == nil || p.Root == nil {
		return best
	}

	rank := map[Kind]int{
		KindOther:     0,
		KindFullScan:  1,
		KindLabelScan: 2,
		KindIndexScan: 3,
		KindIndexSeek: 4,
	}

	p.Root.walk(func(op *Operator) {
		if k := KindOf(op.Type); rank[k] > rank[best] {
			best = k
		}
	})

	return best
}

func (o *Operator) walk(fn func(*Operator)) {
	fn(o)

	for _, child := range o.Children {
		child.walk(fn)
	}
}
