package service

// levelThresholds[i] is the completed-fast count required for level i+1.
// Any non-decreasing mapping works; this one levels up quickly at first and
// slows down toward a year of fasts.
var levelThresholds = [...]int{0, 3, 7, 14, 30, 60, 100, 150, 250, 365}

// LevelFor maps a total completed-fast count to a level. Pure and
// non-decreasing in its argument; capped at len(levelThresholds).
func LevelFor(totalCompletedFasts int) int {
	level := 1
	for i, min := range levelThresholds {
		if totalCompletedFasts >= min {
			level = i + 1
		}
	}
	return level
}
