package postcache

import (
	"maps"
	"slices"
	"time"
)

// Queue buffers post mutations until they are flushed. It is plain mutable
// state with no locking; one owner drives AddPost, RemovePosts and Flush.
type Queue struct {
	posts        map[string]Post
	postAccounts map[string][]int
	removals     map[int]struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.reset()
	return q
}

// AddPost queues an upsert of a post seen through account. A non-empty icon
// is stored as a photo at IconPosition; gallery images take positions 1..N in
// argument order. A later AddPost for the same id replaces the queued post,
// while accounts accumulate.
func (q *Queue) AddPost(id, name, body string, timestamp time.Time, icon string, gallery []PostImage, extra map[string]any, account int) {
	images := make(map[int]PostImage, len(gallery)+1)
	if icon != "" {
		images[IconPosition] = NewPostImage(icon, ImagePhoto)
	}
	for i, img := range gallery {
		images[i+1] = img
	}
	q.Enqueue(NewPost(id, name, body, timestamp, images, extra, nil), account)
}

// Enqueue queues an already built post and links it to accounts. The post's
// own Accounts are ignored; links come only from the accounts argument.
func (q *Queue) Enqueue(post Post, accounts ...int) {
	q.posts[post.id] = post
	q.postAccounts[post.id] = append(q.postAccounts[post.id], accounts...)
}

// RemovePosts queues removal of every post linked to account. Queuing the
// same account twice has no additional effect.
func (q *Queue) RemovePosts(account int) {
	q.removals[account] = struct{}{}
}

// PendingCounts summarises queued work.
type PendingCounts struct {
	Posts    int
	Links    int
	Removals int
}

// Pending returns the number of queued posts, account links and removals.
func (q *Queue) Pending() PendingCounts {
	links := 0
	for _, accs := range q.postAccounts {
		links += len(accs)
	}
	return PendingCounts{
		Posts:    len(q.posts),
		Links:    links,
		Removals: len(q.removals),
	}
}

// Empty reports whether nothing is queued.
func (q *Queue) Empty() bool {
	return len(q.posts) == 0 && len(q.postAccounts) == 0 && len(q.removals) == 0
}

// removalAccounts returns queued removal accounts in ascending order.
func (q *Queue) removalAccounts() []int {
	return slices.Sorted(maps.Keys(q.removals))
}

// postIDs returns queued post ids in ascending order.
func (q *Queue) postIDs() []string {
	return slices.Sorted(maps.Keys(q.posts))
}

// linkIDs returns ids with queued account links in ascending order.
func (q *Queue) linkIDs() []string {
	return slices.Sorted(maps.Keys(q.postAccounts))
}

func (q *Queue) reset() {
	q.posts = make(map[string]Post)
	q.postAccounts = make(map[string][]int)
	q.removals = make(map[int]struct{})
}
