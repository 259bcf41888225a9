package listing

// Sort names one upstream listing ordering fetched as a separate request.
type Sort string

const (
	SortHot    Sort = "hot"
	SortNew    Sort = "new"
	SortTop    Sort = "top"
	SortRising Sort = "rising"
)

// ParseSorts converts configured sort names into Sort values, dropping
// anything unknown.
func ParseSorts(names []string) []Sort {
	out := make([]Sort, 0, len(names))
	for _, name := range names {
		switch Sort(name) {
		case SortHot, SortNew, SortTop, SortRising:
			out = append(out, Sort(name))
		}
	}
	if len(out) == 0 {
		out = []Sort{SortHot}
	}
	return out
}

// RawPost is one upstream post record. Only the fields the resolver inspects
// are decoded; everything else is ignored.
type RawPost struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
	Domain     string  `json:"domain"`
	PostHint   string  `json:"post_hint"`
	Thumbnail  string  `json:"thumbnail"`
	Over18     bool    `json:"over_18"`
	IsVideo    bool    `json:"is_video"`
	IsGallery  bool    `json:"is_gallery"`

	Media               *Media                       `json:"media"`
	Preview             *Preview                     `json:"preview"`
	GalleryData         *GalleryData                 `json:"gallery_data"`
	MediaMetadata       map[string]MediaMetadataItem `json:"media_metadata"`
	CrosspostParentList []RawPost                    `json:"crosspost_parent_list"`
}

// Media carries reddit-hosted video data or an oEmbed envelope.
type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
	OEmbed      *OEmbed      `json:"oembed"`
}

// RedditVideo describes a reddit-hosted video rendition set.
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url"`
	DashURL     string `json:"dash_url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Duration    int    `json:"duration"`
	IsGif       bool   `json:"is_gif"`
}

// OEmbed is the rich-embed envelope for externally hosted media.
type OEmbed struct {
	Type         string `json:"type"`
	ProviderName string `json:"provider_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	HTML         string `json:"html"`
}

// Preview carries pre-rendered image renditions for a post.
type Preview struct {
	Images             []PreviewImage `json:"images"`
	RedditVideoPreview *RedditVideo   `json:"reddit_video_preview"`
	Enabled            bool           `json:"enabled"`
}

// PreviewImage is one preview entry with a source and scaled resolutions.
type PreviewImage struct {
	Source      PreviewSource   `json:"source"`
	Resolutions []PreviewSource `json:"resolutions"`
	Variants    PreviewVariants `json:"variants"`
}

// PreviewSource is a single rendition.
type PreviewSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// PreviewVariants holds alternate encodings of a preview image.
type PreviewVariants struct {
	GIF *PreviewImage `json:"gif"`
	MP4 *PreviewImage `json:"mp4"`
}

// GalleryData lists gallery items in display order.
type GalleryData struct {
	Items []GalleryItem `json:"items"`
}

// GalleryItem references an entry in MediaMetadata by media id.
type GalleryItem struct {
	MediaID string `json:"media_id"`
	ID      int64  `json:"id"`
}

// MediaMetadataItem describes one gallery asset.
type MediaMetadataItem struct {
	Status string        `json:"status"`
	E      string        `json:"e"`
	M      string        `json:"m"`
	S      *MediaSource  `json:"s"`
	P      []MediaSource `json:"p"`
}

// MediaSource is a single gallery rendition; U is a static image, GIF/MP4
// are animated variants.
type MediaSource struct {
	U   string `json:"u"`
	GIF string `json:"gif"`
	MP4 string `json:"mp4"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
}

type listingEnvelope struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string  `json:"kind"`
			Data RawPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
