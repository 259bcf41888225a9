package media

import (
	"html"
	"net/url"
	"strings"
	"time"

	"redreel/internal/listing"
)

// Post is the normalized, display-ready representation of one upstream item.
// Invariant: IsImage or IsVideo is true and DisplayURL is non-empty; records
// that cannot satisfy this are dropped by Resolve. ThumbnailURL is always
// non-empty, defaulting to DisplayURL.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	SourceName string    `json:"source_name"`
	CreatedAt  time.Time `json:"created_at"`
	Permalink  string    `json:"permalink"`

	IsImage      bool   `json:"is_image"`
	IsVideo      bool   `json:"is_video"`
	DisplayURL   string `json:"display_url"`
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url"`

	Over18   bool `json:"over_18"`
	Priority bool `json:"priority"`
}

// resolution is the media outcome of a single rule.
type resolution struct {
	isImage   bool
	isVideo   bool
	display   string
	video     string
	thumbnail string
}

// rule pairs a predicate with a resolver. Rules are evaluated in order and
// the first match wins, so adding a new upstream shape is a table change.
type rule struct {
	name    string
	match   func(raw *listing.RawPost) bool
	resolve func(raw *listing.RawPost) (resolution, bool)
}

// directRules are the rules applied to a post's own fields. Crosspost
// indirection recurses into these once, never deeper.
var directRules = []rule{
	{name: "hosted_video", match: matchHostedVideo, resolve: resolveHostedVideo},
	{name: "gallery", match: matchGallery, resolve: resolveGallery},
	{name: "rich_embed", match: matchRichEmbed, resolve: resolveRichEmbed},
	{name: "direct_image", match: matchDirectImage, resolve: resolveDirectImage},
	{name: "direct_video", match: matchDirectVideo, resolve: resolveDirectVideo},
}

// Resolve normalizes one raw post. It returns nil when no rule produced a
// displayable URL; such records are dropped from the feed.
func Resolve(sourceName string, raw listing.RawPost) *Post {
	res, ok := applyRules(&raw)
	if !ok && len(raw.CrosspostParentList) > 0 {
		res, ok = applyRules(&raw.CrosspostParentList[0])
	}
	if !ok {
		res, ok = resolveThumbnailFallback(&raw)
	}
	if !ok || res.display == "" {
		return nil
	}
	if res.thumbnail == "" {
		res.thumbnail = res.display
	}

	return &Post{
		ID:           raw.ID,
		Title:        raw.Title,
		Author:       raw.Author,
		SourceName:   sourceName,
		CreatedAt:    time.Unix(int64(raw.CreatedUTC), 0).UTC(),
		Permalink:    absolutePermalink(raw.Permalink),
		IsImage:      res.isImage,
		IsVideo:      res.isVideo,
		DisplayURL:   res.display,
		VideoURL:     res.video,
		ThumbnailURL: res.thumbnail,
		Over18:       raw.Over18,
	}
}

func applyRules(raw *listing.RawPost) (resolution, bool) {
	for _, r := range directRules {
		if !r.match(raw) {
			continue
		}
		if res, ok := r.resolve(raw); ok {
			return res, true
		}
	}
	return resolution{}, false
}

func matchHostedVideo(raw *listing.RawPost) bool {
	return raw.Media != nil && raw.Media.RedditVideo != nil && raw.Media.RedditVideo.FallbackURL != ""
}

func resolveHostedVideo(raw *listing.RawPost) (resolution, bool) {
	video := progressiveVariant(raw.Media.RedditVideo.FallbackURL)
	if video == "" {
		return resolution{}, false
	}
	thumb, _ := largestPreview(raw)
	if thumb == "" {
		thumb = placeholderFreeThumbnail(raw.Thumbnail)
	}
	return resolution{isVideo: true, display: video, video: video, thumbnail: thumb}, true
}

// progressiveVariant turns an adaptive-manifest URL into a direct
// progressive-download rendition and strips tracking query parameters.
func progressiveVariant(raw string) string {
	cleaned := stripQuery(unescape(raw))
	if cleaned == "" {
		return ""
	}
	if strings.HasSuffix(cleaned, ".mpd") || strings.HasSuffix(cleaned, ".m3u8") {
		if idx := strings.LastIndex(cleaned, "/"); idx >= 0 {
			return cleaned[:idx+1] + "DASH_720.mp4"
		}
		return ""
	}
	return cleaned
}

func matchGallery(raw *listing.RawPost) bool {
	return raw.IsGallery &&
		raw.GalleryData != nil && len(raw.GalleryData.Items) > 0 &&
		len(raw.MediaMetadata) > 0
}

func resolveGallery(raw *listing.RawPost) (resolution, bool) {
	first := raw.GalleryData.Items[0]
	meta, ok := raw.MediaMetadata[first.MediaID]
	if !ok || meta.Status == "failed" {
		return resolution{}, false
	}

	var display string
	if meta.S != nil {
		display = firstNonEmpty(meta.S.U, meta.S.GIF, meta.S.MP4)
	}
	if display == "" && len(meta.P) > 0 {
		// P is ordered smallest first; the last entry is the largest listed
		// preview rendition.
		display = meta.P[len(meta.P)-1].U
	}
	display = unescape(display)
	if display == "" {
		return resolution{}, false
	}

	thumb := display
	if len(meta.P) > 0 && meta.P[0].U != "" {
		thumb = unescape(meta.P[0].U)
	}
	return resolution{isImage: true, display: display, thumbnail: thumb}, true
}

func matchRichEmbed(raw *listing.RawPost) bool {
	if raw.Media != nil && raw.Media.OEmbed != nil {
		return true
	}
	return strings.HasSuffix(strings.ToLower(stripQuery(raw.URL)), ".gifv")
}

func resolveRichEmbed(raw *listing.RawPost) (resolution, bool) {
	if raw.Preview != nil && raw.Preview.RedditVideoPreview != nil && raw.Preview.RedditVideoPreview.FallbackURL != "" {
		video := progressiveVariant(raw.Preview.RedditVideoPreview.FallbackURL)
		if video != "" {
			thumb, _ := largestPreview(raw)
			return resolution{isVideo: true, display: video, video: video, thumbnail: thumb}, true
		}
	}

	link := stripQuery(unescape(raw.URL))
	if strings.HasSuffix(strings.ToLower(link), ".gifv") {
		video := link[:len(link)-len(".gifv")] + ".mp4"
		thumb, _ := largestPreview(raw)
		return resolution{isVideo: true, display: video, video: video, thumbnail: thumb}, true
	}

	if raw.Media != nil && raw.Media.OEmbed != nil && raw.Media.OEmbed.ThumbnailURL != "" {
		thumb := unescape(raw.Media.OEmbed.ThumbnailURL)
		return resolution{isImage: true, display: thumb, thumbnail: thumb}, true
	}
	return resolution{}, false
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

func matchDirectImage(raw *listing.RawPost) bool {
	if raw.PostHint == "image" {
		return true
	}
	link := strings.ToLower(stripQuery(raw.URL))
	for _, ext := range imageExtensions {
		if strings.HasSuffix(link, ext) {
			return true
		}
	}
	return false
}

func resolveDirectImage(raw *listing.RawPost) (resolution, bool) {
	display := unescape(raw.URL)
	if preview, ok := largestPreview(raw); ok {
		display = preview
	}
	if display == "" {
		return resolution{}, false
	}
	thumb := placeholderFreeThumbnail(raw.Thumbnail)
	return resolution{isImage: true, display: display, thumbnail: thumb}, true
}

func matchDirectVideo(raw *listing.RawPost) bool {
	link := strings.ToLower(stripQuery(raw.URL))
	return strings.HasSuffix(link, ".mp4") || strings.HasSuffix(link, ".webm")
}

func resolveDirectVideo(raw *listing.RawPost) (resolution, bool) {
	video := stripQuery(unescape(raw.URL))
	if video == "" {
		return resolution{}, false
	}
	thumb := placeholderFreeThumbnail(raw.Thumbnail)
	return resolution{isVideo: true, display: video, video: video, thumbnail: thumb}, true
}

// resolveThumbnailFallback is the terminal rule: a post with no resolvable
// media but a real thumbnail is shown as a static image.
func resolveThumbnailFallback(raw *listing.RawPost) (resolution, bool) {
	thumb := placeholderFreeThumbnail(raw.Thumbnail)
	if thumb == "" {
		return resolution{}, false
	}
	return resolution{isImage: true, display: thumb, thumbnail: thumb}, true
}

// largestPreview returns the highest-fidelity preview rendition.
func largestPreview(raw *listing.RawPost) (string, bool) {
	if raw.Preview == nil || len(raw.Preview.Images) == 0 {
		return "", false
	}
	image := raw.Preview.Images[0]
	best := image.Source
	for _, candidate := range image.Resolutions {
		if candidate.Width > best.Width {
			best = candidate
		}
	}
	if best.URL == "" {
		return "", false
	}
	return unescape(best.URL), true
}

// thumbnailPlaceholders are the non-URL sentinel values the listing API uses
// in the thumbnail field.
var thumbnailPlaceholders = map[string]struct{}{
	"self": {}, "default": {}, "nsfw": {}, "spoiler": {}, "image": {},
}

func placeholderFreeThumbnail(thumbnail string) string {
	thumbnail = strings.TrimSpace(thumbnail)
	if thumbnail == "" {
		return ""
	}
	if _, placeholder := thumbnailPlaceholders[thumbnail]; placeholder {
		return ""
	}
	if !strings.HasPrefix(thumbnail, "http://") && !strings.HasPrefix(thumbnail, "https://") {
		return ""
	}
	return unescape(thumbnail)
}

func absolutePermalink(permalink string) string {
	if permalink == "" || strings.HasPrefix(permalink, "http://") || strings.HasPrefix(permalink, "https://") {
		return permalink
	}
	return "https://www.reddit.com" + permalink
}

func stripQuery(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		if idx := strings.IndexByte(raw, '?'); idx >= 0 {
			return raw[:idx]
		}
		return raw
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// unescape undoes HTML entity encoding in URLs the listing API returns when
// raw_json is not honoured.
func unescape(raw string) string {
	if !strings.Contains(raw, "&amp;") && !strings.Contains(raw, "&lt;") {
		return raw
	}
	return html.UnescapeString(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
