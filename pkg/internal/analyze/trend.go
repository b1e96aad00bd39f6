package analyze

import "sort"

// Histogram 签名到窗口内逐日计数的映射，按日期升序，最后一项为最近一天.
type Histogram map[string][]int

// IsNew 判断计数序列是否只在最后一天出现且达到阈值.
func IsNew(counts []int, threshold int) bool {
	if len(counts) == 0 {
		return false
	}

	last := len(counts) - 1
	for _, c := range counts[:last] {
		if c != 0 {
			return false
		}
	}

	return counts[last] >= threshold
}

// NewSignatures 返回直方图中判定为新的签名，按字典序排序.
func NewSignatures(h Histogram, threshold int) []string {
	sigs := make([]string, 0)

	for sig, counts := range h {
		if IsNew(counts, threshold) {
			sigs = append(sigs, sig)
		}
	}

	sort.Strings(sigs)

	return sigs
}
