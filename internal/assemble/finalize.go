package assemble

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"morpipe/internal/launch"
	"morpipe/internal/reduce"
)

//go:embed templates/package_init.py
var initTemplate string

// FinalizePackage moves the produced package script into the output root,
// copies every mesh asset listed in the job's manifest into the mesh
// subdirectory, and registers the package in the shared library when
// requested.
func (a *Assembler) FinalizePackage(res launch.Result) error {
	script := a.PackageName + ".py"
	src := filepath.Join(res.Dir, script)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return &MissingArtifactError{Path: src}
		}
		return fmt.Errorf("finalize: %w", err)
	}
	if err := moveFile(src, filepath.Join(a.OutputDir, script)); err != nil {
		return fmt.Errorf("finalize: move package script: %w", err)
	}

	meshes, err := a.readMeshManifest(filepath.Join(res.Dir, reduce.MeshManifestName))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.MeshDir, 0o755); err != nil {
		return fmt.Errorf("finalize: create mesh dir: %w", err)
	}
	for _, mesh := range meshes {
		if err := a.StageAsset(mesh, a.MeshDir); err != nil {
			return fmt.Errorf("finalize: stage mesh %s: %w", mesh, err)
		}
	}
	a.log.Info("package finalized", "package", a.PackageName, "meshes", len(meshes))

	if a.AddToLibrary {
		return a.registerInLibrary()
	}
	return nil
}

func (a *Assembler) readMeshManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingArtifactError{Path: path}
		}
		return nil, fmt.Errorf("read mesh manifest: %w", err)
	}
	defer f.Close()

	var meshes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			meshes = append(meshes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mesh manifest: %w", err)
	}
	return meshes, nil
}

// registerInLibrary copies the whole output tree into the shared library,
// appends the package initializer, and adds the package to the library's
// registration index. The index rewrite is read-modify-rename so a
// concurrent reader never observes a half-written line.
func (a *Assembler) registerInLibrary() error {
	dest := filepath.Join(a.LibraryRoot, a.PackageName)
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return fmt.Errorf("register: a package named %s already exists in the library", a.PackageName)
	}
	if err := copyTree(a.OutputDir, dest); err != nil {
		return fmt.Errorf("register: copy package tree: %w", err)
	}

	body := strings.ReplaceAll(initTemplate, "MyReducedModel", upperFirst(a.PackageName))
	body = strings.ReplaceAll(body, "myReducedModel", a.PackageName)
	initPath := filepath.Join(dest, "__init__.py")
	f, err := os.OpenFile(initPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("register: open initializer: %w", err)
	}
	if _, err := f.WriteString(body); err != nil {
		f.Close()
		return fmt.Errorf("register: write initializer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("register: close initializer: %w", err)
	}

	if err := a.appendToIndex(); err != nil {
		return err
	}
	a.log.Info("package registered", "package", a.PackageName, "library", a.LibraryRoot)
	return nil
}

// appendToIndex inserts the package name into the library index's
// "__all__" marker line, keeping the quoted comma-separated list valid
// whether it was empty or not.
func (a *Assembler) appendToIndex() error {
	indexPath := filepath.Join(a.LibraryRoot, "__init__.py")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &MissingArtifactError{Path: indexPath}
		}
		return fmt.Errorf("register: read index: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	found := false
	for i, line := range lines {
		if !strings.Contains(line, "__all__") {
			continue
		}
		closing := strings.LastIndex(line, "]")
		if closing < 0 {
			return fmt.Errorf("register: index marker line %q has no closing bracket", line)
		}
		entry := "'" + a.PackageName + "'"
		if strings.Contains(line, "[]") {
			lines[i] = line[:closing] + entry + "]"
		} else {
			lines[i] = line[:closing] + "," + entry + "]"
		}
		found = true
		break
	}
	if !found {
		return fmt.Errorf("register: no __all__ marker line in %s", indexPath)
	}

	tmp := indexPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("register: rewrite index: %w", err)
	}
	if err := os.Rename(tmp, indexPath); err != nil {
		return fmt.Errorf("register: replace index: %w", err)
	}
	return nil
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
