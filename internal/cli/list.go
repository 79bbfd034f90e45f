package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eunmann/postcache/pkg/humanfmt"
	"github.com/eunmann/postcache/pkg/postcache"
)

const bodyPreviewRunes = 48

func runList(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	limit := fs.Int("limit", 0, "show at most this many posts (0 shows all)")
	account := fs.Int("account", 0, "only show posts linked to this account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filterAccount := flagSet(fs, "account")
	if *limit < 0 {
		return errors.New("--limit must be non-negative")
	}

	s, err := openSession("list", opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	posts, err := s.cache.Posts(s.ctx)
	if err != nil {
		return err
	}
	if filterAccount {
		posts = linkedTo(posts, *account)
	}
	total := len(posts)
	if *limit > 0 && len(posts) > *limit {
		posts = posts[:*limit]
	}

	return writePostTable(out, posts, total, time.Now())
}

// writePostTable prints posts newest first as an aligned table followed by
// a summary line.
func writePostTable(out io.Writer, posts []postcache.Post, total int, now time.Time) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAGE\tACCOUNTS\tIMAGES\tNAME\tBODY")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID(),
			humanfmt.Age(p.Timestamp(), now),
			joinInts(p.Accounts()),
			len(p.AllImages()),
			humanfmt.Preview(p.Name(), bodyPreviewRunes/2),
			humanfmt.Preview(p.Body(), bodyPreviewRunes),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "%d of %s posts\n", len(posts), humanfmt.Count(total))
	return err
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// linkedTo keeps the posts linked to account.
func linkedTo(posts []postcache.Post, account int) []postcache.Post {
	return slices.DeleteFunc(posts, func(p postcache.Post) bool {
		return !slices.Contains(p.Accounts(), account)
	})
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
