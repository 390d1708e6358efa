// Package blocklist persists pool addresses that sweeps must skip.
package blocklist

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aman-zulfiqar/pair-sweeper/internal/storage"
)

//go:embed ignored_pools.txt
var ignoredPools string

// Seed blocks every address read from r, one per line. Blank lines and lines
// starting with # are skipped. It returns the number of addresses read.
func Seed(ctx context.Context, store storage.BlockList, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := store.Block(ctx, line); err != nil {
			return n, err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read ignore list: %w", err)
	}
	return n, nil
}

// SeedDefaults blocks the built-in ignore list and, when path is set, the
// addresses listed in that file.
func SeedDefaults(ctx context.Context, store storage.BlockList, path string) (int, error) {
	n, err := Seed(ctx, store, strings.NewReader(ignoredPools))
	if err != nil || path == "" {
		return n, err
	}
	f, err := os.Open(path)
	if err != nil {
		return n, fmt.Errorf("open ignore list: %w", err)
	}
	defer f.Close()
	m, err := Seed(ctx, store, f)
	return n + m, err
}
