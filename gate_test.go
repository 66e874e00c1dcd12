package renderworker

import (
	"sync"
	"testing"
)

func TestGate_DeliveryOrders(t *testing.T) {
	tests := []struct {
		name     string
		issued   int
		deliver  []int64
		accepted []bool
		want     int64
	}{
		{"in order", 3, []int64{1, 2, 3}, []bool{true, true, true}, 3},
		{"latest first", 3, []int64{3, 1, 2}, []bool{true, false, false}, 3},
		{"1,3,2", 3, []int64{1, 3, 2}, []bool{false, true, false}, 3},
		{"unknown id", 2, []int64{7, 2}, []bool{false, true}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Gate
			for i := 0; i < tt.issued; i++ {
				g.Issue()
			}
			for i, id := range tt.deliver {
				if got := g.Offer(RenderResult{ID: id, Status: StatusOK}); got != tt.accepted[i] {
					t.Errorf("Offer(%d) = %v, want %v", id, got, tt.accepted[i])
				}
			}
			latest, ok := g.Latest()
			if !ok {
				t.Fatal("no result accepted")
			}
			if latest.ID != tt.want {
				t.Errorf("latest id = %d, want %d", latest.ID, tt.want)
			}
		})
	}
}

func TestGate_IssueIsMonotonic(t *testing.T) {
	var g Gate
	for want := int64(1); want <= 3; want++ {
		if got := g.Issue(); got != want {
			t.Fatalf("Issue() = %d, want %d", got, want)
		}
	}
}

func TestGate_Empty(t *testing.T) {
	var g Gate
	if _, ok := g.Latest(); ok {
		t.Error("empty gate reported a result")
	}
	if g.Offer(RenderResult{ID: 0}) {
		t.Error("id 0 should never be accepted")
	}
	if id := g.LatestID(); id != 0 {
		t.Errorf("LatestID = %d, want 0", id)
	}
}

func TestGate_ErrorResultsAreAccepted(t *testing.T) {
	var g Gate
	id := g.Issue()
	if !g.Offer(RenderResult{ID: id, Status: StatusError, Message: "schema error"}) {
		t.Fatal("error result for the latest id was rejected")
	}
	latest, _ := g.Latest()
	if latest.Status != StatusError {
		t.Errorf("status = %q, want %q", latest.Status, StatusError)
	}
}

func TestGate_IssueConcurrent(t *testing.T) {
	var g Gate
	var wg sync.WaitGroup
	seen := make(chan int64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- g.Issue()
		}()
	}
	wg.Wait()
	close(seen)
	unique := map[int64]bool{}
	for id := range seen {
		unique[id] = true
	}
	if len(unique) != 100 {
		t.Errorf("got %d unique ids, want 100", len(unique))
	}
	if id := g.LatestID(); id != 100 {
		t.Errorf("LatestID = %d, want 100", id)
	}
}
