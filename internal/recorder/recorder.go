package recorder

import (
	"time"

	"MarketPulse/internal/model"
)

// ScanCycle holds the outcome of one movers scan.
type ScanCycle struct {
	StartedAt    time.Time
	Duration     time.Duration
	UniverseSize int
	Priced       int
	Skipped      int
	TopSymbol    string
	TopChange    float64
}

// UniverseBuild records a liquid universe rebuild.
type UniverseBuild struct {
	SessionDate string // "2006-01-02" of the aggregate used, empty when none was found
	Candidates  int
	Kept        int
}

// Resolution records one served snapshot.
type Resolution struct {
	Symbol    string
	Mode      model.Mode
	Strategy  string
	Tier      model.Tier
	Bias      model.Bias
	Price     float64
	ChangePct float64
}

// NewResolution extracts the journal row for a snapshot.
func NewResolution(s model.Snapshot) *Resolution {
	return &Resolution{
		Symbol:    s.Symbol,
		Mode:      s.Mode,
		Strategy:  s.Strategy,
		Tier:      s.SourceTier,
		Bias:      s.Bias,
		Price:     s.Price,
		ChangePct: s.ChangePct,
	}
}

// Recorder journals scanner and resolver activity for later analysis. It is
// write-only; nothing is ever loaded back into the live caches.
type Recorder interface {
	RecordScan(c *ScanCycle) error
	RecordUniverse(u *UniverseBuild) error
	RecordResolution(r *Resolution) error
	Close() error
}
