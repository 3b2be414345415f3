package main

import "fmt"

// formatBytes renders a byte count the way common size-reporting CLIs do:
// binary units, two decimal places above the KiB threshold.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// bloatRatio is cumulative/current size, the display-only metric the
// tree's sizes never carry themselves. A path with current=0 (fully
// deleted) has an undefined ratio; report it as 0 rather than dividing by
// zero.
func bloatRatio(cumulative, current int64) float64 {
	if current == 0 {
		return 0
	}
	return float64(cumulative) / float64(current)
}
