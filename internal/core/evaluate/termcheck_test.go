package evaluate

import "testing"

func TestComputeTermPreservationAllMatched(t *testing.T) {
	original := "The meeting is on March 15, 2024 with Sarah Connor."
	translated := "La reunión es el March 15, 2024 con Sarah Connor."

	tp := ComputeTermPreservation(original, translated, false)
	if tp.Score < 0.99 {
		t.Errorf("expected near-perfect preservation, got %.2f (missing: %v)", tp.Score, tp.Missing)
	}
}

func TestComputeTermPreservationMissingNumber(t *testing.T) {
	original := "The server costs 42 dollars a month."
	translated := "El servidor cuesta mucho dinero al mes."

	tp := ComputeTermPreservation(original, translated, false)
	if tp.Score >= 1.0 {
		t.Errorf("expected preservation score below 1.0 when the number is dropped")
	}
	found := false
	for _, m := range tp.Missing {
		if m == "42" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 42 to be reported missing, got %v", tp.Missing)
	}
}

func TestComputeTermPreservationNoTermsScoresPerfect(t *testing.T) {
	tp := ComputeTermPreservation("hello there", "hola", false)
	if tp.Score != 1.0 {
		t.Errorf("expected score 1.0 when no salient terms exist, got %.2f", tp.Score)
	}
}

func TestRecommendationForThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{90, "APPROVED"},
		{85, "APPROVED"},
		{70, "REVIEW_NEEDED"},
		{40, "REJECT"},
	}
	for _, c := range cases {
		got := recommendationFor(c.score)
		if got != c.want {
			t.Errorf("recommendationFor(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}
