package series

// Latest returns the most recent non-missing value of the named series
func (snap Snapshot) Latest(name string) (float64, bool) {
	column := snap.Columns[name]
	for i := len(column) - 1; i >= 0; i-- {
		if column[i].Valid {
			return column[i].Value, true
		}
	}
	return 0, false
}

// Mean returns the arithmetic mean over the non-missing values of the named
// series. ok is false when every slot is missing
func (snap Snapshot) Mean(name string) (float64, bool) {
	var (
		cumSum float64
		cnt    int
	)
	for _, d := range snap.Columns[name] {
		if d.Valid {
			cumSum += d.Value
			cnt++
		}
	}
	if cnt == 0 {
		return 0, false
	}
	return cumSum / float64(cnt), true
}

// Min returns the smallest non-missing value of the named series
func (snap Snapshot) Min(name string) (float64, bool) {
	var (
		min   float64
		found bool
	)
	for _, d := range snap.Columns[name] {
		if d.Valid && (!found || d.Value < min) {
			min = d.Value
			found = true
		}
	}
	return min, found
}

// Max returns the largest non-missing value of the named series
func (snap Snapshot) Max(name string) (float64, bool) {
	var (
		max   float64
		found bool
	)
	for _, d := range snap.Columns[name] {
		if d.Valid && (!found || d.Value > max) {
			max = d.Value
			found = true
		}
	}
	return max, found
}
