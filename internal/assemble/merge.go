package assemble

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"morpipe/internal/launch"
	"morpipe/internal/reduce"
)

// MergeStateTimelines concatenates each job's state timeline, in
// submission order, into debug/<outName>, renumbering every "T=" marker
// to savePeriod*k for k = 1,2,... across the whole file. Per-job internal
// numbering is discarded so the merged file carries one continuous
// timeline. Each name in aux is independently concatenated per job into
// the debug area without renumbering. Stale outputs are removed before
// writing; the merged timeline lands via an atomic rename so a failure
// mid-merge cannot leave a truncated file behind.
func (a *Assembler) MergeStateTimelines(results []launch.Result, savePeriod int, outName string, aux []string) error {
	if err := os.MkdirAll(a.DebugDir, 0o755); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}

	outPath := filepath.Join(a.DebugDir, outName)
	if err := removeIfPresent(outPath); err != nil {
		return err
	}
	for _, name := range aux {
		if err := removeIfPresent(filepath.Join(a.DebugDir, name)); err != nil {
			return err
		}
	}

	tmpPath := outPath + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create merged timeline: %w", err)
	}
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	marker := 1
	for _, res := range results {
		src := filepath.Join(res.Dir, reduce.StateFileName)
		marker, err = appendTimeline(w, src, savePeriod, marker)
		if err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush merged timeline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close merged timeline: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("finish merged timeline: %w", err)
	}

	a.log.Info("merged state timelines", "jobs", len(results), "markers", marker-1, "out", outPath)

	for _, name := range aux {
		if err := a.concatAuxiliary(results, name); err != nil {
			return err
		}
	}
	return nil
}

// appendTimeline copies one job's timeline into w, rewriting each "T="
// marker line to savePeriod*k, and returns the next marker index.
func appendTimeline(w *bufio.Writer, src string, savePeriod, marker int) (int, error) {
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return marker, &MissingArtifactError{Path: src}
		}
		return marker, fmt.Errorf("open timeline %s: %w", src, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "T=") {
			line = "T= " + strconv.Itoa(savePeriod*marker)
			marker++
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return marker, fmt.Errorf("write merged timeline: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return marker, fmt.Errorf("read timeline %s: %w", src, err)
	}
	return marker, nil
}

// concatAuxiliary appends every job's copy of one auxiliary file, in
// submission order, into the debug area.
func (a *Assembler) concatAuxiliary(results []launch.Result, name string) error {
	out, err := os.Create(filepath.Join(a.DebugDir, name))
	if err != nil {
		return fmt.Errorf("create auxiliary %s: %w", name, err)
	}
	defer out.Close()

	for _, res := range results {
		src := filepath.Join(res.Dir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				return &MissingArtifactError{Path: src}
			}
			return fmt.Errorf("read auxiliary %s: %w", src, err)
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("append auxiliary %s: %w", name, err)
		}
	}
	return out.Close()
}

func removeIfPresent(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale %s: %w", path, err)
	}
	return nil
}
