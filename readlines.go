package infinistream

import (
	"compress/gzip"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// NewChunkedReadlines reads text lines from gzipped chunk files whose paths
// are provided by the source iterator. Lines are split on universal newline
// terminators - LF and CRLF are handled identically - and an empty trailing
// line after the final terminator is dropped. Read failures surface on the
// consuming Next.
func NewChunkedReadlines(paths Iterator[string]) Iterator[string] {
	return NewSelectMany(paths, readChunkLines)
}

// readChunkLines is the gzip reader collaborator, expanding a chunk file path
// into its decompressed lines.
func readChunkLines(path string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		lines, err := readAllLines(path)
		if err != nil {
			yield(``, err)
			return
		}
		for _, line := range lines {
			if !yield(line, nil) {
				return
			}
		}
	}
}

func readAllLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf(`infinistream: read chunk %s: %w`, path, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf(`infinistream: read chunk %s: %w`, path, err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf(`infinistream: read chunk %s: %w`, path, err)
	}
	return splitLines(string(data)), nil
}

func splitLines(text string) []string {
	if text == `` {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == `` {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// scanChunkPaths is the directory scanner collaborator, expanding directories
// into a sorted list of .gz chunk file paths. The sort keeps file order
// stable independent of operating system; files without the .gz suffix are
// ignored.
func scanChunkPaths(dirs []string) ([]string, error) {
	var paths []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), `.gz`) {
				continue
			}
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}
