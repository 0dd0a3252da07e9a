package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(_ *ScanCycle) error         { return nil }
func (n *NoopRecorder) RecordUniverse(_ *UniverseBuild) error { return nil }
func (n *NoopRecorder) RecordResolution(_ *Resolution) error  { return nil }
func (n *NoopRecorder) Close() error                          { return nil }
