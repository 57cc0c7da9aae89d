package session

// Recorder receives synchronization and action outcomes for metrics.
type Recorder interface {
	ObserveSync(result string, escrows, skipped int)
	ObserveAction(action, status string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSync(string, int, int) {}
func (nopRecorder) ObserveAction(string, string) {}
