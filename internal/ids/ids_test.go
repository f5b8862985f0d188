package ids

import "testing"

func TestNewIsSortableAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 1000; i++ {
		id := New()
		if len(id) != 26 {
			t.Fatalf("unexpected id length: %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id: %q", id)
		}
		seen[id] = struct{}{}
		if prev != "" && id <= prev {
			t.Fatalf("ids not monotonic: %q after %q", id, prev)
		}
		prev = id
	}
}

func TestNewAccountShape(t *testing.T) {
	for i := 0; i < 200; i++ {
		acc, err := NewAccount()
		if err != nil {
			t.Fatalf("NewAccount: %v", err)
		}
		if len(acc) != 10 {
			t.Fatalf("expected ten digits, got %q", acc)
		}
		if acc[0] < '1' || acc[0] > '2' {
			t.Fatalf("unexpected leading digit: %q", acc)
		}
		for _, r := range acc {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in account handle: %q", acc)
			}
		}
	}
}
