package postcache

import (
	"testing"
	"time"
)

func TestImageKindTokens(t *testing.T) {
	tests := []struct {
		kind  ImageKind
		token string
	}{
		{ImageInvalid, "invalid"},
		{ImagePhoto, "photo"},
		{ImageVideo, "video"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.token {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.token)
		}
		if got := ParseImageKind(tt.token); got != tt.kind {
			t.Errorf("ParseImageKind(%q) = %v, want %v", tt.token, got, tt.kind)
		}
	}
}

func TestParseImageKind_Unknown(t *testing.T) {
	for _, token := range []string{"bogus", "", "Photo", "VIDEO", "gif"} {
		if got := ParseImageKind(token); got != ImageInvalid {
			t.Errorf("ParseImageKind(%q) = %v, want invalid", token, got)
		}
	}
	if got := ImageKind(42).String(); got != "invalid" {
		t.Errorf("out of range kind String() = %q, want invalid", got)
	}
}

// Name and body are stored in argument order and never swapped.
func TestNewPost_NameBodyOrder(t *testing.T) {
	p := NewPost("id", "the name", "the body", time.Unix(0, 0), nil, nil, nil)
	if p.Name() != "the name" {
		t.Errorf("Name() = %q, want %q", p.Name(), "the name")
	}
	if p.Body() != "the body" {
		t.Errorf("Body() = %q, want %q", p.Body(), "the body")
	}
}

func TestNewPost_TimestampSecondsUTC(t *testing.T) {
	loc := time.FixedZone("X", 3*60*60)
	ts := time.Date(2024, 3, 1, 12, 0, 5, 999_000_000, loc)

	p := NewPost("id", "", "", ts, nil, nil, nil)
	want := time.Date(2024, 3, 1, 9, 0, 5, 0, time.UTC)
	if !p.Timestamp().Equal(want) || p.Timestamp().Location() != time.UTC {
		t.Errorf("Timestamp() = %v, want %v", p.Timestamp(), want)
	}
}

func TestPost_IconAndGallery(t *testing.T) {
	images := map[int]PostImage{
		3: NewPostImage("g3.png", ImagePhoto),
		0: NewPostImage("icon.png", ImagePhoto),
		1: NewPostImage("g1.mp4", ImageVideo),
	}
	p := NewPost("id", "n", "b", time.Now(), images, nil, nil)

	if p.Icon() != "icon.png" {
		t.Errorf("Icon() = %q, want icon.png", p.Icon())
	}

	gallery := p.Images()
	if len(gallery) != 2 {
		t.Fatalf("Images() len = %d, want 2", len(gallery))
	}
	if gallery[0].URL() != "g1.mp4" || gallery[0].Kind() != ImageVideo {
		t.Errorf("gallery[0] = %+v", gallery[0])
	}
	if gallery[1].URL() != "g3.png" {
		t.Errorf("gallery[1] = %+v", gallery[1])
	}
	if len(p.AllImages()) != 3 {
		t.Errorf("AllImages() len = %d, want 3", len(p.AllImages()))
	}
}

func TestPost_NoIcon(t *testing.T) {
	p := NewPost("id", "n", "b", time.Now(), map[int]PostImage{1: NewPostImage("g.png", ImagePhoto)}, nil, nil)
	if p.Icon() != "" {
		t.Errorf("Icon() = %q, want empty", p.Icon())
	}
	if len(p.Images()) != 1 {
		t.Errorf("Images() len = %d, want 1", len(p.Images()))
	}
}

func TestPost_AccessorsReturnCopies(t *testing.T) {
	extra := map[string]any{"k": "v"}
	accounts := []int{1}
	p := NewPost("id", "n", "b", time.Now(), nil, extra, accounts)

	extra["k"] = "changed"
	accounts[0] = 99
	if p.Extra()["k"] != "v" || p.Accounts()[0] != 1 {
		t.Fatal("NewPost must copy its inputs")
	}

	p.Extra()["k"] = "mutated"
	p.Accounts()[0] = 42
	if p.Extra()["k"] != "v" || p.Accounts()[0] != 1 {
		t.Error("accessors must return copies")
	}
}
