package usecase

// IsExecutable reports whether a queued proposal's timelock has elapsed.
// now is ledger time, never wall-clock time.
func IsExecutable(eta, now uint64) bool {
	return eta > 0 && now >= eta
}
