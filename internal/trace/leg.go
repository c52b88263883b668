package trace

// MarkLegs runs leg-detection pass over points in place,
// setting the leg-marker bit on whichever point begins a new flight
// segment. Grounded directly on original_source/globe_index.c's
// mark_legs: a per-aircraft climb/descent threshold derived from mean
// altitude, a rolling high/low tracker, and a major-climb/major-descent
// pairing rule that fires a leg either immediately on a post-descent
// ground stop or partway through a climb that follows a descent by more
// than ten minutes.
func MarkLegs(points []StatePoint) {
	if len(points) < 20 {
		return
	}

	var sum float64
	for i := range points {
		altFt, onGround, altUnknown, _ := UnpackAltitude(points[i].AltPacked)
		points[i].AltPacked = WithLeg(points[i].AltPacked, false)
		if altUnknown {
			continue
		}
		if onGround {
			altFt = 0
		}
		sum += float64(altFt)
	}

	threshold := int32(sum) / int32(len(points)) / 3
	if threshold > 10000 {
		threshold = 10000
	}

	high := int32(0)
	low := int32(100000)

	var majorClimb, majorDescent int64
	var majorClimbIndex, majorDescentIndex int
	var lastHigh, lastLow int64
	lastLowIndex := 0
	var lastAirborne int64
	wasGround := false

	for i := 1; i < len(points); i++ {
		state := points[i]
		altFt, onGround, altUnknown, _ := UnpackAltitude(state.AltPacked)
		if onGround || altUnknown {
			altFt = 0
		}

		if !onGround {
			lastAirborne = state.TimestampMS
		}

		if altFt >= high {
			high = altFt
		}
		if altFt <= low {
			low = altFt
		}

		if abs32(low-altFt) < 800 {
			lastLow = state.TimestampMS
			lastLowIndex = i
		}
		if abs32(high-altFt) < 800 {
			lastHigh = state.TimestampMS
		}

		if high-low > threshold {
			if lastHigh > lastLow {
				idx := maxInt(0, lastLowIndex+3)
				if idx >= len(points) {
					idx = len(points) - 1
				}
				majorClimb = points[idx].TimestampMS
				majorClimbIndex = idx
				low = high - threshold*9/10
			}
			if lastHigh < lastLow {
				idx := maxInt(0, i-3)
				majorDescent = points[idx].TimestampMS
				majorDescentIndex = idx
				high = low + threshold*9/10
			}
		}

		legGround := majorDescent != 0 && (onGround || wasGround) &&
			(state.TimestampMS > points[i-1].TimestampMS+25*60*1000 ||
				state.TimestampMS > lastAirborne+45*60*1000)

		if (majorClimb != 0 && majorDescent != 0 && majorClimb >= majorDescent+10*60*1000) || legGround {
			switch {
			case legGround:
				points[i].AltPacked = WithLeg(points[i].AltPacked, true)
			case majorDescentIndex+1 == majorClimbIndex:
				points[majorClimbIndex].AltPacked = WithLeg(points[majorClimbIndex].AltPacked, true)
			default:
				found := false
				for j := majorClimbIndex; j >= majorDescentIndex && j >= 1; j-- {
					if points[j].TimestampMS > points[j-1].TimestampMS+5*60*1000 {
						points[j].AltPacked = WithLeg(points[j].AltPacked, true)
						found = true
						break
					}
				}
				if !found {
					half := majorDescent + (majorClimb-majorDescent)/2
					for j := majorDescentIndex + 1; j < majorClimbIndex; j++ {
						if points[j].TimestampMS > half {
							points[j].AltPacked = WithLeg(points[j].AltPacked, true)
							break
						}
					}
				}
			}

			majorClimb, majorClimbIndex = 0, 0
			majorDescent, majorDescentIndex = 0, 0
		}

		wasGround = onGround
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
