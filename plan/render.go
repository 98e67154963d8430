package plan

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Render styles for plan trees, following the runner's palette.
var (
	styleOperator  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6")).Bold(true) // blue-500
	styleSeek      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")).Bold(true) // green-500
	styleScan      = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")).Bold(true) // amber-500
	styleStats     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))            // gray-500
	styleIdentExpr = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))            // gray-400
)

// Tree characters shared with the runner's tree output.
const (
	treeMiddle = "├─"
	treeEnd    = "╰─"
	treeBar    = "│ "
)

// Render returns a styled tree view of the plan for terminal output.
func (p *Plan) Render() string {
	if p == nil || p.Root == nil {
		return ""
	}

	var b strings.Builder

	renderOperator(&b, p.Root, "", true, p.Profiled)

	return strings.TrimRight(b.String(), "\n")
}

func renderOperator(b *strings.Builder, op *Operator, prefix string, last bool, profiled bool) {
	branch := treeMiddle
	childPrefix := prefix + treeBar

	if last {
		branch = treeEnd
		childPrefix = prefix + "  "
	}

	if prefix == "" && last {
		// Root has no branch glyph.
		branch = ""
		childPrefix = ""
	}

	b.WriteString(prefix)

	if branch != "" {
		b.WriteString(branch)
		b.WriteString(" ")
	}

	b.WriteString(operatorStyle(op.Type).Render(op.Type))

	if len(op.Identifiers) > 0 {
		b.WriteString(" ")
		b.WriteString(styleIdentExpr.Render("(" + strings.Join(op.Identifiers, ", ") + ")"))
	}

	b.WriteString(" ")
	b.WriteString(styleStats.Render(statsLine(op, profiled)))
	b.WriteString("\n")

	for i, child := range op.Children {
		renderOperator(b, child, childPrefix, i == len(op.Children)-1, profiled)
	}
}

func operatorStyle(operator string) lipgloss.Style {
	switch KindOf(operator) {
	case KindIndexSeek, KindIndexScan:
		return styleSeek
	case KindFullScan, KindLabelScan:
		return styleScan
	default:
		return styleOperator
	}
}

func statsLine(op *Operator, profiled bool) string {
	if !profiled {
		return fmt.Sprintf("est %.0f rows", op.EstimatedRows)
	}

	line := fmt.Sprintf("%d rows, %d db hits", op.Records, op.DBHits)

	if op.PageCacheHits+op.PageCacheMisses > 0 {
		line += fmt.Sprintf(", cache %d/%d", op.PageCacheHits, op.PageCacheHits+op.PageCacheMisses)
	}

	return line
}
