package numeric

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Stub procedures fabricate plausible outputs without any numerics.
// They back dry runs and wiring tests.

// StubBasisExtractor writes a modes file header advertising Modes modes.
type StubBasisExtractor struct {
	Modes int
}

func (s *StubBasisExtractor) ComputeModes(_ context.Context, statePath, modesPath string, _ float64, _ bool) (int, error) {
	if _, err := os.Stat(statePath); err != nil {
		return 0, fmt.Errorf("state timeline: %w", err)
	}
	body := fmt.Sprintf("NDOF %d\n", s.Modes)
	if err := os.WriteFile(modesPath, []byte(body), 0o644); err != nil {
		return 0, err
	}
	return s.Modes, nil
}

// StubDomainComputer writes a fixed reduced domain and uniform weights.
type StubDomainComputer struct {
	Domain []int
}

func (s *StubDomainComputer) ComputeDomain(_ context.Context, giePath, ridPath, weightsPath string, _ float64) error {
	if _, err := os.Stat(giePath); err != nil {
		return fmt.Errorf("error indicators: %w", err)
	}
	var rid, weights strings.Builder
	for _, e := range s.Domain {
		rid.WriteString(strconv.Itoa(e))
		rid.WriteByte('\n')
		weights.WriteString("1.0\n")
	}
	if err := os.WriteFile(ridPath, []byte(rid.String()), 0o644); err != nil {
		return err
	}
	return os.WriteFile(weightsPath, []byte(weights.String()), 0o644)
}

// StubActiveNodeConverter writes and returns a fixed active-node list.
type StubActiveNodeConverter struct {
	Nodes []int
}

func (s *StubActiveNodeConverter) Convert(_ context.Context, ridPath, elementsPath, outPath string) ([]int, error) {
	for _, p := range []string{ridPath, elementsPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, err
		}
	}
	var sb strings.Builder
	for _, n := range s.Nodes {
		sb.WriteString(strconv.Itoa(n))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(outPath, []byte(sb.String()), 0o644); err != nil {
		return nil, err
	}
	return s.Nodes, nil
}
