package workspace

import (
	"fmt"
	"strings"
)

// DiffStats counts line-level changes between two file versions.
type DiffStats struct {
	Added   int
	Removed int
}

// GenerateDiff produces a simple unified per-line diff with ---/+++
// headers. Unchanged lines are emitted with a leading space, removals
// with '-', additions with '+'.
func GenerateDiff(path, oldContent, newContent string) (string, DiffStats) {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", path)
	fmt.Fprintf(&b, "+++ b/%s\n", path)

	stats := DiffStats{}
	for _, op := range diffOps(oldLines, newLines) {
		switch op.kind {
		case opKeep:
			b.WriteString(" " + op.line + "\n")
		case opRemove:
			b.WriteString("-" + op.line + "\n")
			stats.Removed++
		case opAdd:
			b.WriteString("+" + op.line + "\n")
			stats.Added++
		}
	}
	return b.String(), stats
}

type opKind int

const (
	opKeep opKind = iota
	opRemove
	opAdd
)

type diffOp struct {
	kind opKind
	line string
}

// diffOps computes an LCS-based edit script between two line slices.
func diffOps(oldLines, newLines []string) []diffOp {
	n, m := len(oldLines), len(newLines)
	// lcs[i][j] = length of LCS of oldLines[i:] and newLines[j:]
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []diffOp
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case oldLines[i] == newLines[j]:
			ops = append(ops, diffOp{opKeep, oldLines[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, diffOp{opRemove, oldLines[i]})
			i++
		default:
			ops = append(ops, diffOp{opAdd, newLines[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, diffOp{opRemove, oldLines[i]})
	}
	for ; j < m; j++ {
		ops = append(ops, diffOp{opAdd, newLines[j]})
	}
	return ops
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
