package benchutil

import (
	"testing"
)

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(DefaultConfig(50)).Generate()
	b := NewGenerator(DefaultConfig(50)).Generate()

	if len(a) != 50 || len(b) != 50 {
		t.Fatalf("generated %d and %d posts, want 50", len(a), len(b))
	}
	for i := range a {
		if a[i].ID() != b[i].ID() || a[i].Body() != b[i].Body() || !a[i].Timestamp().Equal(b[i].Timestamp()) {
			t.Fatalf("post %d differs between runs with the same seed", i)
		}
	}
}

func TestGenerator_Shape(t *testing.T) {
	cfg := DefaultConfig(200)
	posts := NewGenerator(cfg).Generate()

	ids := make(map[string]bool, len(posts))
	for _, p := range posts {
		if ids[p.ID()] {
			t.Fatalf("duplicate post id %s", p.ID())
		}
		ids[p.ID()] = true

		if p.Icon() == "" {
			t.Errorf("post %s has no icon", p.ID())
		}
		if n := len(p.Images()); n > cfg.MaxGallery {
			t.Errorf("post %s gallery = %d, want <= %d", p.ID(), n, cfg.MaxGallery)
		}
		accs := p.Accounts()
		if len(accs) == 0 || len(accs) > cfg.MaxAccountsPerPost {
			t.Errorf("post %s accounts = %v", p.ID(), accs)
		}
		for _, a := range accs {
			if a < 1 || a > cfg.Accounts {
				t.Errorf("post %s account %d out of range", p.ID(), a)
			}
		}
		if len(p.Extra()) != cfg.ExtraKeys {
			t.Errorf("post %s extra = %d keys, want %d", p.ID(), len(p.Extra()), cfg.ExtraKeys)
		}
	}
}
