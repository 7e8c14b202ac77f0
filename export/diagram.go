package export

import (
	"fmt"
	"strings"
)

// DiagramFormat selects a rendering.
type DiagramFormat int

const (
	// PlantUML renders a @startuml state diagram.
	PlantUML DiagramFormat = iota
	// Mermaid renders a stateDiagram-v2 block.
	Mermaid
	// MarkdownTable renders a states/transitions table.
	MarkdownTable
)

// Diagram renders snap in the given format. The CLI picks a single output
// format per invocation (see cli.go).
func Diagram(snap Snapshot, format DiagramFormat) string {
	switch format {
	case Mermaid:
		return mermaid(snap)
	case MarkdownTable:
		return markdownTable(snap)
	default:
		return plantUML(snap)
	}
}

func plantUML(snap Snapshot) string {
	var sb strings.Builder
	sb.WriteString("@startuml\n")
	for _, s := range snap.States {
		sb.WriteString(fmt.Sprintf("state \"%s\" as s%d\n", s.String(), s.Index))
	}
	for _, t := range snap.Transitions {
		for _, src := range t.SrcIndex {
			sb.WriteString(fmt.Sprintf("s%d --> %s : %s\n", src, dstLabel(snap, t.Dst), strings.Join(t.Events, ",")))
		}
	}
	sb.WriteString("@enduml\n")
	return sb.String()
}

func mermaid(snap Snapshot) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	for _, t := range snap.Transitions {
		for _, src := range t.SrcIndex {
			sb.WriteString(fmt.Sprintf("    s%d --> %s : %s\n", src, dstLabel(snap, t.Dst), strings.Join(t.Events, ",")))
		}
	}
	return sb.String()
}

func markdownTable(snap Snapshot) string {
	var sb strings.Builder
	sb.WriteString("## States\n\n")
	for _, s := range snap.States {
		sb.WriteString(fmt.Sprintf("- `%s`\n", s.String()))
	}
	sb.WriteString("\n## Transitions\n\n")
	sb.WriteString("| Source | Event | Destination | Guards | Actions |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, t := range snap.Transitions {
		srcs := make([]string, len(t.SrcIndex))
		for i, idx := range t.SrcIndex {
			srcs[i] = fmt.Sprintf("s%d", idx)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d |\n",
			strings.Join(srcs, ","), strings.Join(t.Events, ","), t.Dst, t.NumGuards, t.NumActions))
	}
	return sb.String()
}

// dstLabel resolves a transition's Dst field to the node name a diagram
// edge should point at: "keep"/"bypass" render as edges onto the "[*]"
// pseudo-node, a concrete destination renders as its own state index.
func dstLabel(snap Snapshot, dst string) string {
	switch dst {
	case "keep", "bypass":
		return "[*]"
	default:
		for _, s := range snap.States {
			if s.String() == dst {
				return fmt.Sprintf("s%d", s.Index)
			}
		}
		return dst
	}
}
