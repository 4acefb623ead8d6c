package engine

// Observer receives evaluation counters. metrics.Registry satisfies it.
type Observer interface {
	RecordSampleRejected(symbol, reason string)
	RecordSignal(source, kind string)
	RecordSignalSuppressed(kind string)
	RecordScoringFailure(scorer string)
}

type nopObserver struct{}

func (nopObserver) RecordSampleRejected(string, string) {}
func (nopObserver) RecordSignal(string, string)         {}
func (nopObserver) RecordSignalSuppressed(string)       {}
func (nopObserver) RecordScoringFailure(string)         {}
