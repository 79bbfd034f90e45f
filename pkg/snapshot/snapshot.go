// Package snapshot exports and imports post aggregates as Parquet files.
//
// A snapshot holds one row per post with its images, extra metadata and
// account links nested inside it, so a cache can be rebuilt from it without
// refetching from the social networks.
package snapshot

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/postcache/pkg/extraval"
	"github.com/eunmann/postcache/pkg/fileutil"
	"github.com/eunmann/postcache/pkg/postcache"
)

// postRecord is the Parquet row layout of one post.
type postRecord struct {
	ID        string        `parquet:"id"`
	Name      string        `parquet:"name"`
	Body      string        `parquet:"body"`
	Timestamp int64         `parquet:"timestamp"`
	Images    []imageRecord `parquet:"images"`
	Extra     []extraRecord `parquet:"extra"`
	Accounts  []int64       `parquet:"accounts"`
}

type imageRecord struct {
	Position int32  `parquet:"position"`
	URL      string `parquet:"url"`
	Kind     string `parquet:"kind"`
}

type extraRecord struct {
	Key   string `parquet:"key"`
	Value string `parquet:"value"`
}

func toRecord(p postcache.Post) postRecord {
	r := postRecord{
		ID:        p.ID(),
		Name:      p.Name(),
		Body:      p.Body(),
		Timestamp: p.Timestamp().Unix(),
	}

	images := p.AllImages()
	for _, pos := range slices.Sorted(maps.Keys(images)) {
		img := images[pos]
		r.Images = append(r.Images, imageRecord{
			Position: int32(pos),
			URL:      img.URL(),
			Kind:     img.Kind().String(),
		})
	}

	extra := extraval.FormatMap(p.Extra())
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		r.Extra = append(r.Extra, extraRecord{Key: k, Value: extra[k]})
	}

	for _, acc := range p.Accounts() {
		r.Accounts = append(r.Accounts, int64(acc))
	}
	return r
}

func fromRecord(r postRecord) postcache.Post {
	images := make(map[int]postcache.PostImage, len(r.Images))
	for _, img := range r.Images {
		images[int(img.Position)] = postcache.NewPostImage(img.URL, postcache.ParseImageKind(img.Kind))
	}

	extra := make(map[string]any, len(r.Extra))
	for _, e := range r.Extra {
		extra[e.Key] = e.Value
	}

	accounts := make([]int, 0, len(r.Accounts))
	for _, acc := range r.Accounts {
		accounts = append(accounts, int(acc))
	}

	return postcache.NewPost(r.ID, r.Name, r.Body, time.Unix(r.Timestamp, 0), images, extra, accounts)
}

// Write encodes posts as a Parquet file to w.
func Write(w io.Writer, posts []postcache.Post) error {
	records := make([]postRecord, 0, len(posts))
	for _, p := range posts {
		records = append(records, toRecord(p))
	}
	if err := parquet.Write(w, records); err != nil {
		return fmt.Errorf("write parquet snapshot: %w", err)
	}
	return nil
}

// Read decodes a Parquet snapshot of size bytes from r.
func Read(r io.ReaderAt, size int64) ([]postcache.Post, error) {
	records, err := parquet.Read[postRecord](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet snapshot: %w", err)
	}

	posts := make([]postcache.Post, 0, len(records))
	for _, rec := range records {
		posts = append(posts, fromRecord(rec))
	}
	return posts, nil
}

// WriteFile writes a snapshot to path, replacing any existing file atomically.
func WriteFile(path string, posts []postcache.Post) error {
	return fileutil.WriteAtomic(path, func(w io.Writer) error {
		return Write(w, posts)
	})
}

// ReadFile reads the snapshot at path.
func ReadFile(path string) ([]postcache.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	return Read(f, info.Size())
}
