package core

import "testing"

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(42, 7)
	b := NewRNG(42, 7)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("draw %d differs for identical seed pair", i)
		}
	}
}

func TestRNGStreamsIndependent(t *testing.T) {
	a := NewRNG(42, 0)
	b := NewRNG(42, 1)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 100 {
		t.Fatal("distinct streams produced identical sequences")
	}
}

func TestSeedFromPoint(t *testing.T) {
	s1 := SeedFromPoint(0, 152, 53.9, -116.5)
	s2 := SeedFromPoint(0, 152, 53.9, -116.5)
	if s1 != s2 {
		t.Fatal("same point should give same seed")
	}
	if SeedFromPoint(1, 152, 53.9, -116.5) == s1 {
		t.Fatal("tag should change the seed")
	}
	if SeedFromPoint(0, 153, 53.9, -116.5) == s1 {
		t.Fatal("day should change the seed")
	}
	if SeedFromPoint(0, 152, 53.9001, -116.5) == s1 {
		t.Fatal("nearby point should change the seed")
	}
}
