package logging

import "testing"

func TestSampler_FirstThenEveryNth(t *testing.T) {
	s := NewSampler(5)

	var logged []int
	for i := 1; i <= 12; i++ {
		if s.ShouldLog("event") {
			logged = append(logged, i)
		}
	}

	want := []int{1, 6, 11}
	if len(logged) != len(want) {
		t.Fatalf("expected %v, got %v", want, logged)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, logged)
		}
	}
}

func TestSampler_KeysAreIndependent(t *testing.T) {
	s := NewSampler(3)

	if !s.ShouldLog("a") {
		t.Fatal("expected first occurrence of a to log")
	}
	if s.ShouldLog("a") {
		t.Fatal("expected second occurrence of a to be suppressed")
	}
	if !s.ShouldLog("b") {
		t.Fatal("expected first occurrence of b to log")
	}
}

func TestSampler_ShouldLogEveryOverridesRate(t *testing.T) {
	s := NewSampler(50)

	logged := 0
	for i := 0; i < 4; i++ {
		if s.ShouldLogEvery("hot", 2) {
			logged++
		}
	}
	if logged != 2 {
		t.Fatalf("expected 2 logged at rate 2, got %d", logged)
	}

	// A rate of 1 or less never suppresses.
	for i := 0; i < 3; i++ {
		if !s.ShouldLogEvery("always", 1) {
			t.Fatal("expected rate 1 to always log")
		}
	}
}
