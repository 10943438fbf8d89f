package random

import "go.uber.org/zap"

// Picker wraps a Source and logger so every selection leaves an audit trail.
// Picks are logged at debug level with the purpose, the range, and the result.
type Picker struct {
	src    Source
	logger *zap.Logger
}

// NewPicker creates a Picker that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewPicker(src Source, logger *zap.Logger) *Picker {
	if src == nil || logger == nil {
		panic("random.NewPicker: src and logger must be non-nil")
	}
	return &Picker{src: src, logger: logger}
}

// Index returns a uniformly chosen index in [0, n) and logs it under purpose.
//
// Precondition: n > 0.
func (p *Picker) Index(purpose string, n int) int {
	idx := p.src.Intn(n)
	p.logger.Debug("random pick",
		zap.String("purpose", purpose),
		zap.Int("range", n),
		zap.Int("index", idx),
	)
	return idx
}
