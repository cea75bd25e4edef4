package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"rook/internal/source"
)

// listTreeFiles возвращает отсортированный список всех дампов деревьев.
func listTreeFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, TreeExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

// DiagnoseDir checks every tree dump under dir, fanning out across jobs
// goroutines. Results come back in path order regardless of completion
// order, so diagnostics stay deterministic. The shared interner is
// thread-safe; each worker gets its own FileSet merged by index afterward.
func DiagnoseDir(ctx context.Context, dir string, opts Options, jobs int) (*source.FileSet, []*Result, error) {
	files, err := listTreeFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	interner := source.NewInterner()
	fileSets := make([]*source.FileSet, len(files))
	results := make([]*Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fs := source.NewFileSet()
			fs.SetBaseDir(dir)
			res, err := DiagnoseFile(fs, interner, path, opts)
			if err != nil {
				return err
			}
			fileSets[i] = fs
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Merge per-worker file sets into one, re-anchoring spans.
	merged := source.NewFileSet()
	merged.SetBaseDir(dir)
	for i, fs := range fileSets {
		if fs == nil || results[i] == nil {
			continue
		}
		remapFiles(merged, fs, results[i])
	}
	return merged, results, nil
}

// remapFiles moves a worker's files into the merged set and rewrites the
// result's spans to the new FileIDs.
func remapFiles(merged, worker *source.FileSet, res *Result) {
	remap := make(map[source.FileID]source.FileID, worker.Len())
	for id := 0; id < worker.Len(); id++ {
		f := worker.Get(source.FileID(id))
		remap[f.ID] = merged.Add(f.Path, f.Content, f.Flags)
	}

	res.FileID = remap[res.FileID]
	items := res.Bag.Items()
	for i := range items {
		items[i].Primary.File = remap[items[i].Primary.File]
		for n := range items[i].Notes {
			items[i].Notes[n].Span.File = remap[items[i].Notes[n].Span.File]
		}
	}
}
