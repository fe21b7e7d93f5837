// Package lttb Largest-Triangle-Three-Buckets 降采样
//
// 保留首尾点，中间按桶选取与前一选中点、下一桶均值构成最大三角形的点。
package lttb

import "math"

// Point 降采样输入，X 需单调不减
type Point struct {
	X, Y float64
}

// Downsample 返回下标，threshold < 3 或点数不超过 threshold 时原样返回全部下标
func Downsample(data []Point, threshold int) []int {
	n := len(data)
	if threshold >= n || threshold < 3 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	out := make([]int, 0, threshold)
	out = append(out, 0)

	every := float64(n-2) / float64(threshold-2)
	a := 0
	for i := 0; i < threshold-2; i++ {
		// 下一桶均值
		avgStart := int(math.Floor(float64(i+1)*every)) + 1
		avgEnd := int(math.Floor(float64(i+2)*every)) + 1
		if avgEnd > n {
			avgEnd = n
		}
		var avgX, avgY float64
		for j := avgStart; j < avgEnd; j++ {
			avgX += data[j].X
			avgY += data[j].Y
		}
		if cnt := float64(avgEnd - avgStart); cnt > 0 {
			avgX /= cnt
			avgY /= cnt
		}

		rangeStart := int(math.Floor(float64(i)*every)) + 1
		rangeEnd := int(math.Floor(float64(i+1)*every)) + 1

		maxArea := -1.0
		next := rangeStart
		for j := rangeStart; j < rangeEnd; j++ {
			area := math.Abs((data[a].X-avgX)*(data[j].Y-data[a].Y)-
				(data[a].X-data[j].X)*(avgY-data[a].Y)) / 2
			if area > maxArea {
				maxArea = area
				next = j
			}
		}
		out = append(out, next)
		a = next
	}
	return append(out, n-1)
}
