package audio

import "testing"

func TestResampleNoOpWhenRatesMatch(t *testing.T) {
	in := []int{1, 2, 3, 4}
	out := resample(in, 24000, 24000)
	if len(out) != len(in) {
		t.Fatalf("expected no-op resample to return the same length, got %d", len(out))
	}
}

func TestResampleUpsampleGrowsLength(t *testing.T) {
	in := make([]int, 100)
	out := resample(in, 16000, 24000)
	if len(out) <= len(in) {
		t.Errorf("expected upsampling to grow sample count, got %d from %d", len(out), len(in))
	}
}

func TestStretchToLengthExpands(t *testing.T) {
	in := []int{0, 100, 200, 300}
	out := stretchToLength(in, 8)
	if len(out) != 8 {
		t.Fatalf("expected output length 8, got %d", len(out))
	}
	if out[0] != in[0] {
		t.Errorf("expected first sample preserved, got %d want %d", out[0], in[0])
	}
}

func TestStretchToLengthCompresses(t *testing.T) {
	in := make([]int, 100)
	for i := range in {
		in[i] = i
	}
	out := stretchToLength(in, 10)
	if len(out) != 10 {
		t.Fatalf("expected output length 10, got %d", len(out))
	}
}

func TestStretchToLengthZeroTarget(t *testing.T) {
	out := stretchToLength([]int{1, 2, 3}, 0)
	if len(out) != 0 {
		t.Errorf("expected empty output for zero target length, got %d", len(out))
	}
}
