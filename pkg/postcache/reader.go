package postcache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/postcache/internal/logctx"
)

// Facet names, used in logs and metrics.
const (
	facetImages   = "images"
	facetExtra    = "extra"
	facetAccounts = "accounts"
)

// postRow is one row of the posts table.
type postRow struct {
	id        string
	name      string
	body      string
	timestamp int64
}

// Posts loads every cached post, most recent first, with its images, extra
// metadata and linked accounts. Queued mutations are not visible until
// flushed.
//
// A failed lookup of one post's images, extra or accounts is logged and
// leaves that facet empty; only a failure to read the posts table itself
// is returned as an error.
func (c *Cache) Posts(ctx context.Context) ([]Post, error) {
	if c.db == nil {
		return nil, ErrClosed
	}

	log := logctx.FromContext(ctx)

	// Post rows are collected before any facet lookup so no prepared
	// statement is used while another result set is open.
	postRows, err := c.readPostRows(ctx)
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(postRows))
	for _, r := range postRows {
		p := Post{
			id:        r.id,
			name:      r.name,
			body:      r.body,
			timestamp: time.Unix(r.timestamp, 0).UTC(),
		}

		images, err := c.readImages(ctx, r.id)
		if err != nil {
			facetFailed(log, facetImages, r.id, err)
			images = map[int]PostImage{}
		}
		p.images = images

		extra, err := c.readExtra(ctx, r.id)
		if err != nil {
			facetFailed(log, facetExtra, r.id, err)
			extra = map[string]any{}
		}
		p.extra = extra

		accounts, err := c.readAccounts(ctx, r.id)
		if err != nil {
			facetFailed(log, facetAccounts, r.id, err)
			accounts = []int{}
		}
		p.accounts = accounts

		posts = append(posts, p)
	}

	return posts, nil
}

func facetFailed(log zerolog.Logger, facet, postID string, err error) {
	facetReadErrorsTotal.WithLabelValues(facet).Inc()
	log.Warn().
		Err(err).
		Str("facet", facet).
		Str("post_id", postID).
		Msg("reading post facet failed; using empty value")
}

func (c *Cache) readPostRows(ctx context.Context) ([]postRow, error) {
	rows, err := c.postStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var out []postRow
	for rows.Next() {
		var r postRow
		if err := rows.Scan(&r.id, &r.name, &r.body, &r.timestamp); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

func (c *Cache) readImages(ctx context.Context, postID string) (map[int]PostImage, error) {
	rows, err := c.imageStmt.QueryContext(ctx, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make(map[int]PostImage)
	for rows.Next() {
		var (
			position int
			url      string
			token    string
		)
		if err := rows.Scan(&position, &url, &token); err != nil {
			return nil, err
		}
		images[position] = NewPostImage(url, ParseImageKind(token))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}

func (c *Cache) readExtra(ctx context.Context, postID string) (map[string]any, error) {
	rows, err := c.extraStmt.QueryContext(ctx, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	extra := make(map[string]any)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		extra[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return extra, nil
}

func (c *Cache) readAccounts(ctx context.Context, postID string) ([]int, error) {
	rows, err := c.accountStmt.QueryContext(ctx, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []int{}
	for rows.Next() {
		var account int
		if err := rows.Scan(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}
