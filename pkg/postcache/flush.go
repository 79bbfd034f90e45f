package postcache

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/eunmann/postcache/internal/logctx"
	"github.com/eunmann/postcache/pkg/extraval"
)

// Column lists for the four cache tables, in insert order.
var (
	postCols  = []string{"identifier", "name", "body", "timestamp"}
	imageCols = []string{"postId", "position", "url", "type"}
	extraCols = []string{"postId", "key", "value"}
	linkCols  = []string{"postId", "account"}
)

// childTables lists tables keyed by postId, in delete order. The posts table
// is always deleted last so no child row outlives its post.
var childTables = []string{tableLinks, tableExtra, tableImages}

// denormalized holds the row batches produced from queued posts.
type denormalized struct {
	posts  *rowBatch
	images *rowBatch
	extra  *rowBatch
	links  *rowBatch
}

// denormalize fans queued posts out into one batch per table.
func denormalize(q *Queue) denormalized {
	d := denormalized{
		posts:  newRowBatch(tablePosts, postCols...),
		images: newRowBatch(tableImages, imageCols...),
		extra:  newRowBatch(tableExtra, extraCols...),
		links:  newRowBatch(tableLinks, linkCols...),
	}

	for _, id := range q.postIDs() {
		p := q.posts[id]
		d.posts.add(p.id, p.name, p.body, p.timestamp.Unix())

		for _, pos := range p.sortedPositions() {
			img := p.images[pos]
			d.images.add(p.id, pos, img.url, img.kind.String())
		}

		extra := extraval.FormatMap(p.extra)
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			d.extra.add(p.id, k, extra[k])
		}
	}

	for _, id := range q.linkIDs() {
		for _, account := range q.postAccounts[id] {
			d.links.add(id, account)
		}
	}
	return d
}

// flushStats counts rows touched by a committed flush, per table.
type flushStats struct {
	removedPosts int
	deleted      map[string]int64
	written      map[string]int
}

// Flush applies every queued mutation in one transaction:
//
//  1. posts linked to accounts queued by RemovePosts are looked up,
//  2. their link, extra, image and post rows are deleted, in that order,
//  3. queued posts replace their post, image and extra rows,
//  4. queued account links are written.
//
// On success the queue is cleared. On any failure the transaction is rolled
// back and the queue is left as it was so the flush can be retried. An empty
// queue returns nil without touching the database.
func (c *Cache) Flush(ctx context.Context) error {
	if c.db == nil {
		return ErrClosed
	}
	if c.queue.Empty() {
		return nil
	}

	ctx = logctx.WithStr(ctx, "flush_id", uuid.NewString())
	log := logctx.FromContext(ctx)
	pending := c.queue.Pending()
	start := time.Now()

	stats, err := c.flush(ctx)
	elapsed := time.Since(start)
	flushDuration.Observe(elapsed.Seconds())

	if err != nil {
		flushTotal.WithLabelValues(resultFail).Inc()
		log.Error().
			Err(err).
			Int("queued_posts", pending.Posts).
			Int("queued_links", pending.Links).
			Int("queued_removals", pending.Removals).
			Msg("flush failed; queue kept for retry")
		return err
	}

	flushTotal.WithLabelValues(resultOK).Inc()
	for table, n := range stats.written {
		rowsWrittenTotal.WithLabelValues(table).Add(float64(n))
	}
	for table, n := range stats.deleted {
		rowsDeletedTotal.WithLabelValues(table).Add(float64(n))
	}
	c.queue.reset()

	log.Debug().
		Int("posts_written", stats.written[tablePosts]).
		Int("images_written", stats.written[tableImages]).
		Int("extra_written", stats.written[tableExtra]).
		Int("links_written", stats.written[tableLinks]).
		Int("posts_removed", stats.removedPosts).
		Dur("elapsed", elapsed).
		Msg("flush committed")
	return nil
}

func (c *Cache) flush(ctx context.Context) (flushStats, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return flushStats{}, fmt.Errorf("begin transaction: %w", err)
	}

	stats, err := c.apply(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log := logctx.FromContext(ctx)
			log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return flushStats{}, err
	}

	if err := tx.Commit(); err != nil {
		// The transaction is finished either way; Rollback only reports ErrTxDone here.
		_ = tx.Rollback()
		return flushStats{}, fmt.Errorf("commit transaction: %w", err)
	}
	return stats, nil
}

// apply runs the delete and write phases inside tx.
func (c *Cache) apply(ctx context.Context, tx *sql.Tx) (flushStats, error) {
	stats := flushStats{
		deleted: make(map[string]int64),
		written: make(map[string]int),
	}

	removeIDs, err := resolveRemovals(ctx, tx, c.queue.removalAccounts())
	if err != nil {
		return stats, err
	}
	stats.removedPosts = len(removeIDs)

	if len(removeIDs) > 0 {
		for _, table := range childTables {
			n, err := deleteWhereIn(ctx, tx, table, "postId", removeIDs)
			if err != nil {
				return stats, fmt.Errorf("remove posts: %w", err)
			}
			stats.deleted[table] += n
		}
		n, err := deleteWhereIn(ctx, tx, tablePosts, "identifier", removeIDs)
		if err != nil {
			return stats, fmt.Errorf("remove posts: %w", err)
		}
		stats.deleted[tablePosts] += n
	}

	rows := denormalize(c.queue)

	// images and extra carry no primary key, so a re-added post's old facet
	// rows are cleared before the new ones go in.
	if ids := c.queue.postIDs(); len(ids) > 0 {
		for _, table := range []string{tableImages, tableExtra} {
			if _, err := deleteWhereIn(ctx, tx, table, "postId", ids); err != nil {
				return stats, fmt.Errorf("replace posts: %w", err)
			}
		}
	}

	for _, b := range []*rowBatch{rows.posts, rows.images, rows.extra, rows.links} {
		if err := insertRows(ctx, tx, b); err != nil {
			return stats, err
		}
		stats.written[b.table] = b.rows()
	}
	return stats, nil
}

// resolveRemovals returns the sorted, de-duplicated ids of posts linked to
// any of accounts.
func resolveRemovals(ctx context.Context, tx *sql.Tx, accounts []int) ([]string, error) {
	if len(accounts) == 0 {
		return nil, nil
	}

	stmt, err := tx.PrepareContext(ctx, "SELECT postId FROM link_post_account WHERE account = ?")
	if err != nil {
		return nil, fmt.Errorf("prepare removal lookup: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]struct{})
	for _, account := range accounts {
		if err := collectPostIDs(ctx, stmt, account, seen); err != nil {
			return nil, fmt.Errorf("look up posts for account %d: %w", account, err)
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func collectPostIDs(ctx context.Context, stmt *sql.Stmt, account int, into map[string]struct{}) error {
	rows, err := stmt.QueryContext(ctx, account)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		into[id] = struct{}{}
	}
	return rows.Err()
}
