package billing

// CallCostMinor computes the real charge for a dial attempt.
// Billing is per started minute: 61 seconds cost two minutes.
func CallCostMinor(durationSeconds int, ratePerMinuteMinor int64) int64 {
	if durationSeconds <= 0 || ratePerMinuteMinor <= 0 {
		return 0
	}
	minutes := durationSeconds / 60
	if durationSeconds%60 != 0 {
		minutes++
	}
	return ratePerMinuteMinor * int64(minutes)
}
