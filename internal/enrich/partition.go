package enrich

// Partition splits items into n contiguous chunks whose sizes differ by at
// most one. Every item lands in exactly one chunk; the first len(items)%n
// chunks take the extra item. n is clamped to [1, len(items)].
func Partition[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	size, extra := len(items)/n, len(items)%n
	chunks := make([][]T, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, items[start:end:end])
		start = end
	}
	return chunks
}
