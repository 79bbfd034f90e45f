package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eunmann/postcache/internal/logctx"
	"github.com/eunmann/postcache/pkg/humanfmt"
	"github.com/eunmann/postcache/pkg/postcache"
)

// maxLineBytes bounds a single JSON-lines record.
const maxLineBytes = 4 << 20

// importRecord is one line of an import file.
type importRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Body      string         `json:"body"`
	Timestamp int64          `json:"timestamp"`
	Icon      string         `json:"icon"`
	Gallery   []importImage  `json:"gallery"`
	Extra     map[string]any `json:"extra"`
	Account   *int           `json:"account"`
	Accounts  []int          `json:"accounts"`
}

type importImage struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// accountIDs merges the single and list account fields.
func (r importRecord) accountIDs() []int {
	ids := append([]int(nil), r.Accounts...)
	if r.Account != nil {
		ids = append(ids, *r.Account)
	}
	return ids
}

// post converts the record into a cache post. The icon takes position 0
// and gallery images follow from position 1.
func (r importRecord) post() postcache.Post {
	images := make(map[int]postcache.PostImage, len(r.Gallery)+1)
	if r.Icon != "" {
		images[postcache.IconPosition] = postcache.NewPostImage(r.Icon, postcache.ImagePhoto)
	}
	for i, img := range r.Gallery {
		images[postcache.IconPosition+1+i] = postcache.NewPostImage(img.URL, postcache.ParseImageKind(img.Kind))
	}
	return postcache.NewPost(r.ID, r.Name, r.Body, time.Unix(r.Timestamp, 0), images, r.Extra, r.accountIDs())
}

// decodeRecord parses one JSON line. Numbers in extra keep their literal
// text so large integer ids survive.
func decodeRecord(raw []byte) (importRecord, error) {
	var rec importRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return importRecord{}, err
	}
	return rec, nil
}

func (r importRecord) validate() error {
	if r.ID == "" {
		return errors.New("missing id")
	}
	if len(r.accountIDs()) == 0 {
		return errors.New("missing account")
	}
	return nil
}

func runImport(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	batch := fs.Int("batch", 1000, "flush after this many posts (0 flushes once at the end)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one import file is required")
	}
	if *batch < 0 {
		return errors.New("--batch must be non-negative")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	s, err := openSession("import", opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	start := time.Now()
	n, err := importPosts(s.ctx, s.cache, f, *batch)
	if err != nil {
		return err
	}

	log := logctx.FromContext(s.ctx)
	log.Info().
		Int("posts", n).
		Dur("elapsed", time.Since(start)).
		Msg("import complete")
	fmt.Fprintf(out, "imported %s posts in %s\n", humanfmt.Count(n), humanfmt.Duration(time.Since(start)))
	return nil
}

// importPosts queues every record in r and flushes every batch posts.
// Blank lines are skipped.
func importPosts(ctx context.Context, cache *postcache.Cache, r io.Reader, batch int) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	n, line := 0, 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		rec, err := decodeRecord(raw)
		if err != nil {
			return n, fmt.Errorf("line %d: decode record: %w", line, err)
		}
		if err := rec.validate(); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}

		cache.Enqueue(rec.post(), rec.accountIDs()...)
		n++

		if batch > 0 && n%batch == 0 {
			if err := cache.Flush(logctx.WithInt(ctx, "imported", n)); err != nil {
				return n, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("read import file: %w", err)
	}

	if err := cache.Flush(logctx.WithInt(ctx, "imported", n)); err != nil {
		return n, err
	}
	return n, nil
}
