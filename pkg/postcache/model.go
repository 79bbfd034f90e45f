package postcache

import (
	"maps"
	"slices"
	"time"
)

// ImageKind identifies the media type of a post image.
type ImageKind uint8

// Image kinds. The zero value is ImageInvalid.
const (
	ImageInvalid ImageKind = iota
	ImagePhoto
	ImageVideo
)

// imageKindTokens is the storage encoding of each ImageKind.
var imageKindTokens = [...]string{
	ImageInvalid: "invalid",
	ImagePhoto:   "photo",
	ImageVideo:   "video",
}

// String returns the token stored in the images.type column.
func (k ImageKind) String() string {
	if int(k) < len(imageKindTokens) {
		return imageKindTokens[k]
	}
	return imageKindTokens[ImageInvalid]
}

// ParseImageKind decodes a stored token. Anything other than "photo" or
// "video" decodes to ImageInvalid.
func ParseImageKind(token string) ImageKind {
	switch token {
	case imageKindTokens[ImagePhoto]:
		return ImagePhoto
	case imageKindTokens[ImageVideo]:
		return ImageVideo
	default:
		return ImageInvalid
	}
}

// PostImage is an immutable image reference owned by a Post.
type PostImage struct {
	url  string
	kind ImageKind
}

// NewPostImage returns an image with the given URL and kind.
func NewPostImage(url string, kind ImageKind) PostImage {
	return PostImage{url: url, kind: kind}
}

func (i PostImage) URL() string     { return i.url }
func (i PostImage) Kind() ImageKind { return i.kind }

// IconPosition is the image position reserved for the post icon.
// Gallery images start at position 1.
const IconPosition = 0

// Post is a social post aggregate: the post row plus its images, extra
// metadata and linked accounts.
type Post struct {
	id        string
	name      string
	body      string
	timestamp time.Time
	images    map[int]PostImage
	extra     map[string]any
	accounts  []int
}

// NewPost builds a Post. Maps and slices are copied; the timestamp is kept
// at second resolution in UTC.
func NewPost(id, name, body string, timestamp time.Time, images map[int]PostImage, extra map[string]any, accounts []int) Post {
	p := Post{
		id:        id,
		name:      name,
		body:      body,
		timestamp: timestamp.UTC().Truncate(time.Second),
		images:    make(map[int]PostImage, len(images)),
		extra:     make(map[string]any, len(extra)),
		accounts:  slices.Clone(accounts),
	}
	maps.Copy(p.images, images)
	maps.Copy(p.extra, extra)
	return p
}

func (p Post) ID() string           { return p.id }
func (p Post) Name() string         { return p.name }
func (p Post) Body() string         { return p.body }
func (p Post) Timestamp() time.Time { return p.timestamp }

// Icon returns the URL of the image at IconPosition, or "" if there is none.
func (p Post) Icon() string {
	img, ok := p.images[IconPosition]
	if !ok {
		return ""
	}
	return img.url
}

// Images returns the gallery: every image except the icon, in position order.
func (p Post) Images() []PostImage {
	positions := p.galleryPositions()
	out := make([]PostImage, 0, len(positions))
	for _, pos := range positions {
		out = append(out, p.images[pos])
	}
	return out
}

// AllImages returns a copy of the position to image mapping, icon included.
func (p Post) AllImages() map[int]PostImage {
	return maps.Clone(p.images)
}

// Extra returns a copy of the extra metadata.
func (p Post) Extra() map[string]any {
	return maps.Clone(p.extra)
}

// Accounts returns the account ids linked to the post.
func (p Post) Accounts() []int {
	return slices.Clone(p.accounts)
}

func (p Post) galleryPositions() []int {
	positions := make([]int, 0, len(p.images))
	for pos := range p.images {
		if pos > IconPosition {
			positions = append(positions, pos)
		}
	}
	slices.Sort(positions)
	return positions
}

// sortedPositions returns every image position, icon included, ascending.
func (p Post) sortedPositions() []int {
	return slices.Sorted(maps.Keys(p.images))
}
