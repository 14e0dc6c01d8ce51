package report

import "strings"

// Sparkline characters: U+2581 to U+2588
var sparkBars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline converts values to a unicode sparkline.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var sb strings.Builder
	if hi == lo {
		// flat series, use middle bar
		for range values {
			sb.WriteRune(sparkBars[len(sparkBars)/2])
		}
		return sb.String()
	}

	scale := float64(len(sparkBars)-1) / (hi - lo)
	for _, v := range values {
		idx := int((v - lo) * scale)
		if idx >= len(sparkBars) {
			idx = len(sparkBars) - 1
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(sparkBars[idx])
	}
	return sb.String()
}

// SparklineWidth renders values scaled down to at most width bars by
// averaging buckets.
func SparklineWidth(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) <= width {
		return Sparkline(values)
	}

	scaled := make([]float64, width)
	bucket := float64(len(values)) / float64(width)
	for i := 0; i < width; i++ {
		start := int(float64(i) * bucket)
		end := int(float64(i+1) * bucket)
		if end > len(values) {
			end = len(values)
		}
		sum := 0.0
		for j := start; j < end; j++ {
			sum += values[j]
		}
		if end > start {
			scaled[i] = sum / float64(end-start)
		}
	}
	return Sparkline(scaled)
}
