package postcache

import (
	"testing"
	"time"
)

// batchRow returns the values of row i of b.
func batchRow(b *rowBatch, i int) []any {
	w := len(b.cols)
	return b.args[i*w : (i+1)*w]
}

func TestBuildInsertSQL(t *testing.T) {
	got := buildInsertSQL("extra", extraCols, 2)
	want := "INSERT OR REPLACE INTO extra (postId, key, value) VALUES (?, ?, ?), (?, ?, ?)"
	if got != want {
		t.Errorf("buildInsertSQL = %q, want %q", got, want)
	}
}

func TestBuildDeleteSQL(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "DELETE FROM images WHERE postId IN (?)"},
		{3, "DELETE FROM images WHERE postId IN (?, ?, ?)"},
	}
	for _, tt := range tests {
		if got := buildDeleteSQL("images", "postId", tt.n); got != tt.want {
			t.Errorf("buildDeleteSQL(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDenormalize(t *testing.T) {
	q := NewQueue()
	ts := time.Unix(1_700_000_000, 0)
	q.AddPost("b", "name-b", "body-b", ts, "icon.png",
		[]PostImage{NewPostImage("v.mp4", ImageVideo), NewPostImage("x", ImageInvalid)},
		map[string]any{"retweets": 4, "author": "gopher"}, 7)
	q.AddPost("a", "name-a", "body-a", ts.Add(time.Second), "", nil, nil, 8)
	q.AddPost("a", "name-a", "body-a", ts.Add(time.Second), "", nil, nil, 9)

	d := denormalize(q)

	if d.posts.rows() != 2 {
		t.Fatalf("post rows = %d, want 2", d.posts.rows())
	}
	first := batchRow(d.posts, 0)
	if first[0] != "a" || first[1] != "name-a" || first[2] != "body-a" || first[3] != int64(1_700_000_001) {
		t.Errorf("post row 0 = %v", first)
	}

	wantImages := [][]any{
		{"b", 0, "icon.png", "photo"},
		{"b", 1, "v.mp4", "video"},
		{"b", 2, "x", "invalid"},
	}
	if d.images.rows() != len(wantImages) {
		t.Fatalf("image rows = %d, want %d", d.images.rows(), len(wantImages))
	}
	for i, want := range wantImages {
		got := batchRow(d.images, i)
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("image row %d = %v, want %v", i, got, want)
				break
			}
		}
	}

	if d.extra.rows() != 2 {
		t.Fatalf("extra rows = %d, want 2", d.extra.rows())
	}
	if row := batchRow(d.extra, 0); row[1] != "author" || row[2] != "gopher" {
		t.Errorf("extra row 0 = %v", row)
	}
	if row := batchRow(d.extra, 1); row[1] != "retweets" || row[2] != "4" {
		t.Errorf("extra row 1 = %v, value must be stored as text", row)
	}

	if d.links.rows() != 3 {
		t.Fatalf("link rows = %d, want 3", d.links.rows())
	}
	if row := batchRow(d.links, 2); row[0] != "b" || row[1] != 7 {
		t.Errorf("link row 2 = %v", row)
	}
}
