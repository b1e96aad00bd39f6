package analyze

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// FileSet 一个崩溃桶的崩溃线程涉及的文件集合，可能包含空串.
type FileSet map[string]struct{}

// Sorted 返回排序后的文件列表.
func (s FileSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for f := range s {
		out = append(out, f)
	}

	sort.Strings(out)

	return out
}

// ExtractFiles 获取每个崩溃桶代表性崩溃的负载，收集崩溃线程的文件.
// 负载获取失败或缺少线程信息的桶不出现在结果中.
func (a *Analyzer) ExtractFiles(ctx context.Context, occurrences map[string]Occurrence) map[string]FileSet {
	out := make(map[string]FileSet)
	if len(occurrences) == 0 {
		return out
	}

	buckets := make([]string, 0, len(occurrences))
	for b := range occurrences {
		buckets = append(buckets, b)
	}

	sort.Strings(buckets)

	results := make([]FileSet, len(buckets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, bucket := range buckets {
		g.Go(func() error {
			results[i] = a.files(gctx, occurrences[bucket])
			return nil
		})
	}

	_ = g.Wait()

	for i, bucket := range buckets {
		if results[i] != nil {
			out[bucket] = results[i]
		}
	}

	return out
}

func (a *Analyzer) files(ctx context.Context, occ Occurrence) FileSet {
	pc, err := a.fetcher.ProcessedCrash(ctx, occ.UUID)
	if err != nil {
		a.logger.Warn().Err(err).Str("uuid", occ.UUID).Str("bucket", occ.Bucket).Msg("payload fetch failed")
		return nil
	}

	frames, ok := pc.CrashingFrames()
	if !ok {
		a.logger.Debug().Str("uuid", occ.UUID).Msg("payload has no crashing thread")
		return nil
	}

	set := make(FileSet)

	for _, f := range frames {
		if f.File != nil {
			set[ResolveFile(*f.File)] = struct{}{}
		}
	}

	return set
}
