package library

// FrequencyFor looks up the recommendation cadence for date. Only exact
// matches count; the first matching row wins. An empty date never matches.
func FrequencyFor(date string, table []Frequency) (int, bool) {
	if date == "" {
		return 0, false
	}
	for _, f := range table {
		if f.Date == date {
			return f.Recommended, true
		}
	}
	return 0, false
}
