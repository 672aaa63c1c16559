package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when the status changes or the percentage crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastStatus string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%) or when the status changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. Percent can be
// negative to indicate "unknown".
func (s *ProgressSampler) ShouldLog(percent float64, status string) bool {
	if s == nil {
		return true
	}
	status = strings.TrimSpace(status)
	emit := false
	if status != "" && status != s.lastStatus {
		s.lastStatus = status
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if percent >= 100 {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new job starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStatus = ""
	s.lastBucket = -1
}
