package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "rendering") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "rendering") {
		t.Fatal("first status should log")
	}
	if s.ShouldLog(4, "rendering") {
		t.Fatal("progress inside the same bucket should not log")
	}
	if !s.ShouldLog(12, "rendering") {
		t.Fatal("crossing a bucket boundary should log")
	}
	if s.ShouldLog(11, "rendering") {
		t.Fatal("regressing inside a logged bucket should not log")
	}
	if !s.ShouldLog(100, "completed") {
		t.Fatal("status change should log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "rendering")
	s.Reset()
	if !s.ShouldLog(50, "rendering") {
		t.Fatal("expected log after reset")
	}
}
