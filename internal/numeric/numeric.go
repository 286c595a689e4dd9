// Package numeric wraps the external numeric procedures the pipeline
// drives between phases. The procedures are black boxes reached through
// their file contracts; only their inputs, outputs, and failure signals
// are modeled here.
package numeric

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ProcedureError reports that an external numeric procedure signaled
// failure (a sentinel result or an abnormal exit).
type ProcedureError struct {
	Procedure string
	Detail    string
}

func (e *ProcedureError) Error() string {
	return fmt.Sprintf("external procedure %s failed: %s", e.Procedure, e.Detail)
}

// BasisExtractor computes an orthonormal basis from a merged state
// timeline and writes it to modesPath. It returns the number of modes
// kept under the truncation tolerance.
type BasisExtractor interface {
	ComputeModes(ctx context.Context, statePath, modesPath string, tol float64, rigidBody bool) (int, error)
}

// DomainComputer derives a reduced integration domain and its weights
// from one per-element error-indicator file.
type DomainComputer interface {
	ComputeDomain(ctx context.Context, giePath, ridPath, weightsPath string, tol float64) error
}

// ActiveNodeConverter converts a reduced domain and its saved-elements
// file into the list of active state-vector indices, written to outPath
// and returned.
type ActiveNodeConverter interface {
	Convert(ctx context.Context, ridPath, elementsPath, outPath string) ([]int, error)
}

// ReadIntLines parses a file of one integer per line, skipping blanks.
func ReadIntLines(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		out = append(out, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
