package media

import (
	"reflect"
	"testing"

	"redreel/internal/listing"
)

func TestResolveHostedVideoPrefersProgressiveVariant(t *testing.T) {
	raw := listing.RawPost{
		ID:      "p1",
		Title:   "clip",
		IsVideo: true,
		Media: &listing.Media{RedditVideo: &listing.RedditVideo{
			FallbackURL: "https://v.example/a/DASHPlaylist.mpd?source=fallback",
		}},
	}

	post := Resolve("videos", raw)
	if post == nil {
		t.Fatal("expected a resolved post")
	}
	if !post.IsVideo || post.IsImage {
		t.Fatalf("expected video kind, got %#v", post)
	}
	if post.VideoURL != "https://v.example/a/DASH_720.mp4" {
		t.Fatalf("expected progressive rendition, got %q", post.VideoURL)
	}
	if post.ThumbnailURL == "" {
		t.Fatal("thumbnail must never be empty on a resolved post")
	}
}

func TestResolveHostedVideoKeepsDirectRendition(t *testing.T) {
	raw := listing.RawPost{
		ID: "p2",
		Media: &listing.Media{RedditVideo: &listing.RedditVideo{
			FallbackURL: "https://v.example/a/DASH_480.mp4?source=fallback",
		}},
	}

	post := Resolve("videos", raw)
	if post == nil {
		t.Fatal("expected a resolved post")
	}
	if post.VideoURL != "https://v.example/a/DASH_480.mp4" {
		t.Fatalf("tracking query must be stripped, got %q", post.VideoURL)
	}
}

func TestResolveGalleryUsesFirstItem(t *testing.T) {
	raw := listing.RawPost{
		ID:        "g1",
		IsGallery: true,
		GalleryData: &listing.GalleryData{Items: []listing.GalleryItem{
			{MediaID: "m1"}, {MediaID: "m2"},
		}},
		MediaMetadata: map[string]listing.MediaMetadataItem{
			"m1": {
				Status: "valid",
				S:      &listing.MediaSource{U: "https://i.example/m1.jpg?width=3840&amp;crop=smart"},
				P:      []listing.MediaSource{{U: "https://i.example/m1-small.jpg"}},
			},
			"m2": {Status: "valid", S: &listing.MediaSource{U: "https://i.example/m2.jpg"}},
		},
	}

	post := Resolve("pics", raw)
	if post == nil {
		t.Fatal("expected a resolved post")
	}
	if !post.IsImage {
		t.Fatalf("expected image kind, got %#v", post)
	}
	if post.DisplayURL != "https://i.example/m1.jpg?width=3840&crop=smart" {
		t.Fatalf("entities must be unescaped, got %q", post.DisplayURL)
	}
	if post.ThumbnailURL != "https://i.example/m1-small.jpg" {
		t.Fatalf("unexpected thumbnail: %q", post.ThumbnailURL)
	}
}

func TestResolveGalleryFallsBackToAnimatedVariant(t *testing.T) {
	raw := listing.RawPost{
		ID:          "g2",
		IsGallery:   true,
		GalleryData: &listing.GalleryData{Items: []listing.GalleryItem{{MediaID: "m1"}}},
		MediaMetadata: map[string]listing.MediaMetadataItem{
			"m1": {Status: "valid", S: &listing.MediaSource{GIF: "https://i.example/m1.gif"}},
		},
	}

	post := Resolve("pics", raw)
	if post == nil || post.DisplayURL != "https://i.example/m1.gif" {
		t.Fatalf("expected animated fallback, got %#v", post)
	}
}

func TestResolveGifvDerivesMP4(t *testing.T) {
	raw := listing.RawPost{ID: "e1", URL: "https://i.example/funny.gifv"}

	post := Resolve("gifs", raw)
	if post == nil {
		t.Fatal("expected a resolved post")
	}
	if !post.IsVideo || post.VideoURL != "https://i.example/funny.mp4" {
		t.Fatalf("expected derived mp4, got %#v", post)
	}
}

func TestResolveRichEmbedPrefersVideoPreview(t *testing.T) {
	raw := listing.RawPost{
		ID:  "e2",
		URL: "https://gfy.example/xyz",
		Media: &listing.Media{OEmbed: &listing.OEmbed{
			Type:         "video",
			ThumbnailURL: "https://gfy.example/xyz-thumb.jpg",
		}},
		Preview: &listing.Preview{RedditVideoPreview: &listing.RedditVideo{
			FallbackURL: "https://v.example/xyz/DASH_720.mp4",
		}},
	}

	post := Resolve("gifs", raw)
	if post == nil || !post.IsVideo {
		t.Fatalf("expected video, got %#v", post)
	}
	if post.VideoURL != "https://v.example/xyz/DASH_720.mp4" {
		t.Fatalf("expected embedded progressive url, got %q", post.VideoURL)
	}
}

func TestResolveRichEmbedFallsBackToThumbnailImage(t *testing.T) {
	raw := listing.RawPost{
		ID:  "e3",
		URL: "https://clips.example/abc",
		Media: &listing.Media{OEmbed: &listing.OEmbed{
			Type:         "video",
			ThumbnailURL: "https://clips.example/abc-thumb.jpg",
		}},
	}

	post := Resolve("clips", raw)
	if post == nil || !post.IsImage {
		t.Fatalf("expected thumbnail image fallback, got %#v", post)
	}
	if post.DisplayURL != "https://clips.example/abc-thumb.jpg" {
		t.Fatalf("unexpected display url: %q", post.DisplayURL)
	}
}

func TestResolveDirectImagePrefersLargestPreview(t *testing.T) {
	raw := listing.RawPost{
		ID:       "i1",
		PostHint: "image",
		URL:      "https://i.example/raw.jpg",
		Preview: &listing.Preview{Images: []listing.PreviewImage{{
			Source: listing.PreviewSource{URL: "https://i.example/source.jpg", Width: 4000},
			Resolutions: []listing.PreviewSource{
				{URL: "https://i.example/640.jpg", Width: 640},
				{URL: "https://i.example/1080.jpg", Width: 1080},
			},
		}}},
	}

	post := Resolve("pics", raw)
	if post == nil || !post.IsImage {
		t.Fatalf("expected image, got %#v", post)
	}
	if post.DisplayURL != "https://i.example/source.jpg" {
		t.Fatalf("expected highest-fidelity preview, got %q", post.DisplayURL)
	}
}

func TestResolveDirectImageByExtension(t *testing.T) {
	raw := listing.RawPost{ID: "i2", URL: "https://i.example/photo.png"}

	post := Resolve("pics", raw)
	if post == nil || !post.IsImage || post.DisplayURL != "https://i.example/photo.png" {
		t.Fatalf("expected extension match, got %#v", post)
	}
	if post.ThumbnailURL != post.DisplayURL {
		t.Fatalf("thumbnail must default to display url, got %q", post.ThumbnailURL)
	}
}

func TestResolveDirectVideoFile(t *testing.T) {
	raw := listing.RawPost{
		ID:        "v1",
		URL:       "https://v.example/loop.mp4",
		Thumbnail: "https://i.example/loop-thumb.jpg",
	}

	post := Resolve("videos", raw)
	if post == nil || !post.IsVideo {
		t.Fatalf("expected video, got %#v", post)
	}
	if post.ThumbnailURL != "https://i.example/loop-thumb.jpg" {
		t.Fatalf("supplied thumbnail must be used, got %q", post.ThumbnailURL)
	}
}

func TestResolveCrosspostRecursesOneLevel(t *testing.T) {
	raw := listing.RawPost{
		ID:        "x1",
		Title:     "crossposted clip",
		Permalink: "/r/mirror/comments/x1/",
		CrosspostParentList: []listing.RawPost{{
			ID: "orig",
			Media: &listing.Media{RedditVideo: &listing.RedditVideo{
				FallbackURL: "https://v.example/orig/DASHPlaylist.mpd",
			}},
		}},
	}

	post := Resolve("mirror", raw)
	if post == nil || !post.IsVideo {
		t.Fatalf("expected video via crosspost parent, got %#v", post)
	}
	if post.ID != "x1" {
		t.Fatalf("resolved post must keep the wrapper's identity, got %q", post.ID)
	}
	if post.Permalink != "https://www.reddit.com/r/mirror/comments/x1/" {
		t.Fatalf("permalink must be absolutized, got %q", post.Permalink)
	}
}

func TestResolveCrosspostDoesNotRecurseTwice(t *testing.T) {
	raw := listing.RawPost{
		ID: "x2",
		CrosspostParentList: []listing.RawPost{{
			ID: "mid",
			CrosspostParentList: []listing.RawPost{{
				ID:  "deep",
				URL: "https://i.example/deep.jpg",
			}},
		}},
	}

	if post := Resolve("mirror", raw); post != nil {
		t.Fatalf("second-level crosspost media must not resolve, got %#v", post)
	}
}

func TestResolveThumbnailFallback(t *testing.T) {
	raw := listing.RawPost{
		ID:        "t1",
		URL:       "https://blog.example/article",
		Thumbnail: "https://i.example/t1-thumb.jpg",
	}

	post := Resolve("links", raw)
	if post == nil || !post.IsImage {
		t.Fatalf("expected thumbnail fallback image, got %#v", post)
	}
	if post.DisplayURL != "https://i.example/t1-thumb.jpg" {
		t.Fatalf("unexpected display url: %q", post.DisplayURL)
	}
}

func TestResolveRejectsPlaceholderThumbnails(t *testing.T) {
	for _, placeholder := range []string{"self", "default", "nsfw", "spoiler", "image", ""} {
		raw := listing.RawPost{ID: "t2", URL: "https://blog.example/article", Thumbnail: placeholder}
		if post := Resolve("links", raw); post != nil {
			t.Fatalf("placeholder thumbnail %q must not resolve, got %#v", placeholder, post)
		}
	}
}

func TestResolveIsPure(t *testing.T) {
	raw := listing.RawPost{
		ID:        "p9",
		IsGallery: true,
		GalleryData: &listing.GalleryData{Items: []listing.GalleryItem{{MediaID: "m1"}}},
		MediaMetadata: map[string]listing.MediaMetadataItem{
			"m1": {Status: "valid", S: &listing.MediaSource{U: "https://i.example/m1.jpg"}},
		},
	}

	first := Resolve("pics", raw)
	second := Resolve("pics", raw)
	if first == nil || second == nil {
		t.Fatal("expected resolved posts")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolution must be deterministic: %#v vs %#v", first, second)
	}
}

func TestResolveCompletenessInvariant(t *testing.T) {
	samples := []listing.RawPost{
		{ID: "a", URL: "https://i.example/a.jpg"},
		{ID: "b", URL: "https://v.example/b.mp4"},
		{ID: "c", Media: &listing.Media{RedditVideo: &listing.RedditVideo{FallbackURL: "https://v.example/c/DASHPlaylist.mpd"}}},
		{ID: "d", URL: "https://blog.example/post"},
		{ID: "e", URL: "https://blog.example/post", Thumbnail: "https://i.example/e.jpg"},
	}
	for _, raw := range samples {
		post := Resolve("mixed", raw)
		if post == nil {
			continue
		}
		if !post.IsImage && !post.IsVideo {
			t.Fatalf("post %s: neither image nor video", post.ID)
		}
		if post.DisplayURL == "" || post.ThumbnailURL == "" {
			t.Fatalf("post %s: missing display or thumbnail url: %#v", post.ID, post)
		}
	}
}
