package numeric

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ExecBasisExtractor invokes an external basis-extraction command as
//
//	argv... <statePath> <modesPath> <tol> <rigidBody>
//
// and reads the kept mode count from the command's last output line.
// A negative count is the procedure's failure sentinel.
type ExecBasisExtractor struct {
	Argv []string
}

func (e *ExecBasisExtractor) ComputeModes(ctx context.Context, statePath, modesPath string, tol float64, rigidBody bool) (int, error) {
	args := []string{
		statePath,
		modesPath,
		strconv.FormatFloat(tol, 'g', -1, 64),
		boolFlag(rigidBody),
	}
	out, err := runCommand(ctx, "basis extraction", e.Argv, args)
	if err != nil {
		return 0, err
	}
	count, err := lastInt(out)
	if err != nil {
		return 0, &ProcedureError{Procedure: "basis extraction", Detail: err.Error()}
	}
	if count < 0 {
		return 0, &ProcedureError{Procedure: "basis extraction", Detail: fmt.Sprintf("sentinel mode count %d", count)}
	}
	return count, nil
}

// ExecDomainComputer invokes an external domain/weight command as
//
//	argv... <giePath> <ridPath> <weightsPath> <tol>
type ExecDomainComputer struct {
	Argv []string
}

func (e *ExecDomainComputer) ComputeDomain(ctx context.Context, giePath, ridPath, weightsPath string, tol float64) error {
	args := []string{
		giePath,
		ridPath,
		weightsPath,
		strconv.FormatFloat(tol, 'g', -1, 64),
	}
	_, err := runCommand(ctx, "domain computation", e.Argv, args)
	return err
}

// ExecActiveNodeConverter invokes an external conversion command as
//
//	argv... <ridPath> <elementsPath> <outPath>
//
// and returns the integers the command wrote to outPath.
type ExecActiveNodeConverter struct {
	Argv []string
}

func (e *ExecActiveNodeConverter) Convert(ctx context.Context, ridPath, elementsPath, outPath string) ([]int, error) {
	args := []string{ridPath, elementsPath, outPath}
	if _, err := runCommand(ctx, "active-node conversion", e.Argv, args); err != nil {
		return nil, err
	}
	nodes, err := ReadIntLines(outPath)
	if err != nil {
		return nil, &ProcedureError{Procedure: "active-node conversion", Detail: err.Error()}
	}
	return nodes, nil
}

func runCommand(ctx context.Context, name string, argv, args []string) (string, error) {
	if len(argv) == 0 {
		return "", &ProcedureError{Procedure: name, Detail: "no command configured"}
	}
	full := append(append([]string{}, argv...), args...)
	cmd := exec.CommandContext(ctx, full[0], full[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &ProcedureError{
			Procedure: name,
			Detail:    fmt.Sprintf("%v (output: %s)", err, strings.TrimSpace(string(out))),
		}
	}
	return string(out), nil
}

func lastInt(out string) (int, error) {
	lines := strings.Fields(strings.TrimSpace(out))
	if len(lines) == 0 {
		return 0, fmt.Errorf("no output to parse a mode count from")
	}
	return strconv.Atoi(lines[len(lines)-1])
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
