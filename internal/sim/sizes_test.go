package sim

import (
	"sync"
	"testing"
)

func TestSizeListStaysSorted(t *testing.T) {
	var l SizeList
	for _, v := range []float64{5, 1, 3, 2, 4} {
		l.Add(v)
	}
	got := l.Values()
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("not sorted: %v", got)
		}
	}
	if l.Len() != 5 {
		t.Fatalf("len: got %d", l.Len())
	}
	l.Clear()
	if l.Len() != 0 {
		t.Fatal("clear should empty the list")
	}
}

func TestSizeListConcurrentAdds(t *testing.T) {
	var l SizeList
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(base float64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Add(base + float64(j))
			}
		}(float64(i) * 1000)
	}
	wg.Wait()
	if l.Len() != 800 {
		t.Fatalf("expected 800 values, got %d", l.Len())
	}
	got := l.Values()
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("not sorted after concurrent adds at %d", i)
		}
	}
}
