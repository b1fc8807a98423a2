package smooth

// TriMAGen is the generalized triangular moving average used to combine
// the per-order Laguerre cells into one output value.
//
// With len1 = floor((period+1)/2) and len2 = ceil((period+1)/2), the
// result is the mean over len2 consecutive SMA(len1) computations taken
// at successive offsets from the end of values. For period 1 this reduces
// to the last element — no artificial smoothing at order 1.
func TriMAGen(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}

	len1 := (period + 1) / 2
	len2 := (period + 2) / 2 // ceil((period+1)/2)

	var sum float64
	for i := 0; i < len2; i++ {
		end := len(values) - i
		start := end - len1
		if start < 0 {
			start = 0
		}
		if end <= start {
			continue
		}
		var windowSum float64
		for _, v := range values[start:end] {
			windowSum += v
		}
		sum += windowSum / float64(end-start)
	}
	return sum / float64(len2)
}
