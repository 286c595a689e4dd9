// Package assemble manages the output package layout and the cross-run
// artifact plumbing: merging per-job state timelines, staging mesh and
// debug assets, and finalizing the redistributable reduced package.
package assemble

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"morpipe/internal/logging"
)

// MissingArtifactError reports that a required file was absent at the
// point it was needed. Always fatal, never retried.
type MissingArtifactError struct {
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing artifact: %s", e.Path)
}

// Assembler owns the output tree of one reduction:
//
//	<outputRoot>/{data,debug,mesh}/
//
// plus the optional shared library the finished package is registered in.
type Assembler struct {
	OutputDir string
	DataDir   string
	DebugDir  string
	MeshDir   string

	// PackageName is the final component name, already carrying the
	// "reduced_" prefix.
	PackageName string

	// LibraryRoot is the shared library the package is copied into when
	// AddToLibrary is set. Always explicit configuration, never derived
	// from the installation layout.
	LibraryRoot  string
	AddToLibrary bool

	log *slog.Logger
}

// New returns an Assembler rooted at outputDir. When addToLibrary is set,
// libraryRoot must be non-empty and must not already contain a package of
// this name.
func New(outputDir, packageName, libraryRoot string, addToLibrary bool) (*Assembler, error) {
	if packageName == "" {
		return nil, fmt.Errorf("assembler: empty package name")
	}
	full := "reduced_" + packageName

	if addToLibrary {
		if libraryRoot == "" {
			return nil, fmt.Errorf("assembler: library registration requested without a library root")
		}
		if info, err := os.Stat(filepath.Join(libraryRoot, full)); err == nil && info.IsDir() {
			return nil, fmt.Errorf("assembler: a package named %s already exists in the library at %s", full, libraryRoot)
		}
	}

	return &Assembler{
		OutputDir:    outputDir,
		DataDir:      filepath.Join(outputDir, "data"),
		DebugDir:     filepath.Join(outputDir, "debug"),
		MeshDir:      filepath.Join(outputDir, "mesh"),
		PackageName:  full,
		LibraryRoot:  libraryRoot,
		AddToLibrary: addToLibrary,
		log:          logging.New("assemble"),
	}, nil
}

// EnsureLayout creates the data, debug, and mesh directories. Idempotent:
// an already-existing directory is fine, any other failure propagates.
func (a *Assembler) EnsureLayout() error {
	for _, dir := range []string{a.DataDir, a.DebugDir, a.MeshDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// ModeCount reads the available mode count from a modes file: the second
// whitespace-separated token of its first line. An absent file is a
// MissingArtifactError; any other failure propagates.
func (a *Assembler) ModeCount(modesPath string) (int, error) {
	data, err := os.ReadFile(modesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &MissingArtifactError{Path: modesPath}
		}
		return 0, fmt.Errorf("read modes file: %w", err)
	}
	line := data
	if i := strings.IndexByte(string(data), '\n'); i >= 0 {
		line = data[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return 0, fmt.Errorf("modes file %s: malformed first line %q", modesPath, string(line))
	}
	count, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("modes file %s: mode count token %q: %w", modesPath, fields[1], err)
	}
	return count, nil
}

// StageAsset copies src into the output tree: a directory is copied as a
// tree rooted at dst, a file is copied into dst when dst is a directory,
// to dst otherwise.
func (a *Assembler) StageAsset(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &MissingArtifactError{Path: src}
		}
		return fmt.Errorf("stage %s: %w", src, err)
	}
	if info.IsDir() {
		return copyTree(src, dst)
	}
	target := dst
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		target = filepath.Join(dst, filepath.Base(src))
	}
	return copyFile(src, target)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// moveFile renames src to dst, falling back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// WriteActiveNodes persists a final active-node list, one integer per
// line, via a temporary sibling and an atomic rename.
func WriteActiveNodes(path string, nodes []int) error {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(strconv.Itoa(n))
		sb.WriteByte('\n')
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write active nodes: %w", err)
	}
	return os.Rename(tmp, path)
}
