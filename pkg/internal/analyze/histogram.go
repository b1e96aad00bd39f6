package analyze

import (
	"time"

	"github.com/yeisme/file2crashes/pkg/internal/socorro"
)

// Window 直方图窗口，覆盖 Start 起的 Days 天.
type Window struct {
	Start time.Time
	Days  int
}

// NewWindow 返回参考日期 ref 之前的窗口.
// 查询区间为 [ref-(maxDays+1), ref)，窗口取其中从起点开始的 maxDays+1 天.
func NewWindow(ref time.Time, maxDays int) Window {
	if maxDays < 0 {
		maxDays = 0
	}

	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	return Window{
		Start: day.AddDate(0, 0, -(maxDays + 1)),
		Days:  maxDays + 1,
	}
}

// End 返回查询区间的开区间上界.
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, w.Days)
}

// SearchDate 返回查询用的日期条件.
func (w Window) SearchDate() socorro.SearchDate {
	return socorro.SearchDate{
		">=" + w.Start.Format(time.DateOnly),
		"<" + w.End().Format(time.DateOnly),
	}
}

// Index 返回某天在窗口中的位置，不在窗口内时 ok 为 false.
func (w Window) Index(day time.Time) (int, bool) {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	i := int(d.Sub(w.Start).Hours() / 24)
	if d.Before(w.Start) || i >= w.Days {
		return 0, false
	}

	return i, true
}

// histogramBuilder 向直方图叠加计数，签名首次出现时补齐全零窗口.
type histogramBuilder struct {
	window Window
	h      Histogram
}

func newHistogramBuilder(w Window) *histogramBuilder {
	return &histogramBuilder{window: w, h: make(Histogram)}
}

func (b *histogramBuilder) counts(sig string) []int {
	c, ok := b.h[sig]
	if !ok {
		c = make([]int, b.window.Days)
		b.h[sig] = c
	}

	return c
}

// add 叠加 day 当天 sig 的计数，窗口外的日期被忽略.
func (b *histogramBuilder) add(day time.Time, sig string, count int) {
	i, ok := b.window.Index(day)
	if !ok {
		return
	}

	b.counts(sig)[i] += count
}

// parseDay 解析 "2024-03-04T00:00:00+00:00" 或 "2024-03-04" 形式的日期桶.
func parseDay(term string) (time.Time, bool) {
	if len(term) < len(time.DateOnly) {
		return time.Time{}, false
	}

	d, err := time.Parse(time.DateOnly, term[:len(time.DateOnly)])
	if err != nil {
		return time.Time{}, false
	}

	return d, true
}
