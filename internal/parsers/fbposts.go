package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lerio/luciko/internal/archive"
	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

// The Facebook posts archive spreads one person's timeline across three
// JSON files: the post feed itself, uncategorized photos, and videos. All
// three are merged into a single chronological post stream.

const (
	fbPostsPrefixNew = "your_facebook_activity/posts"
	fbPostsPrefixOld = "posts"

	fbPostsFeed   = "your_posts_1.json"
	fbPhotosFile  = "your_uncategorized_photos.json"
	fbVideosFile  = "your_videos.json"
)

// fbPost is one entry of the your_posts feed. Timestamps are unix seconds;
// all text arrives mojibake-encoded.
type fbPost struct {
	Timestamp int64  `json:"timestamp"`
	Title     string `json:"title"`
	Data      []struct {
		Post string `json:"post"`
	} `json:"data"`
	Attachments []struct {
		Data []struct {
			Media *struct {
				URI         string `json:"uri"`
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"media"`
			ExternalContext *struct {
				URL string `json:"url"`
			} `json:"external_context"`
		} `json:"data"`
	} `json:"attachments"`
}

type fbMediaItem struct {
	URI               string `json:"uri"`
	CreationTimestamp int64  `json:"creation_timestamp"`
	Title             string `json:"title"`
	Description       string `json:"description"`
}

type fbPhotosFileBody struct {
	OtherPhotos []fbMediaItem `json:"other_photos_v2"`
}

type fbVideosFileBody struct {
	Videos []fbMediaItem `json:"videos_v2"`
}

// "Ada Rossi shared a memory." / "Ada Rossi updated her status." — the
// feed titles lead with the author's name followed by a verb.
var fbTitleAuthor = regexp.MustCompile(`^(.+?) (shared|updated|posted|added|wrote|was|is|changed|created|published)\b`)

func detectFacebookPosts(in *Input) bool {
	arc, err := in.Archive()
	if err != nil {
		return false
	}
	for _, p := range arc.FindSuffix(".json") {
		if strings.HasSuffix(p, fbPostsFeed) || strings.HasSuffix(p, fbPhotosFile) ||
			strings.HasSuffix(p, fbVideosFile) {
			return arc.HasPrefix(fbPostsPrefixNew) || arc.HasPrefix(fbPostsPrefixOld)
		}
	}
	return false
}

// ParseFacebookPosts reads a Facebook posts archive into normalized posts.
func ParseFacebookPosts(in *Input, opts Options) (*Result, error) {
	arc, err := in.Archive()
	if err != nil {
		return nil, err
	}

	result := &Result{}

	feedPaths := arc.FindSuffix(fbPostsFeed)
	photoPaths := arc.FindSuffix(fbPhotosFile)
	videoPaths := arc.FindSuffix(fbVideosFile)
	if len(feedPaths)+len(photoPaths)+len(videoPaths) == 0 {
		return nil, fmt.Errorf("posts archive contains no recognized json files")
	}

	var author string
	for _, p := range feedPaths {
		a, err := parseFacebookFeed(arc, p, opts, result)
		if err != nil {
			return nil, err
		}
		if author == "" {
			author = a
		}
	}
	if author == "" {
		author = opts.People.Self()
	}

	for _, p := range photoPaths {
		if err := parseFacebookMediaFile(arc, p, opts, author, "added a photo.", result); err != nil {
			return nil, err
		}
	}
	for _, p := range videoPaths {
		if err := parseFacebookMediaFile(arc, p, opts, author, "added a video.", result); err != nil {
			return nil, err
		}
	}

	result.sortByTimestamp()
	return result, nil
}

// parseFacebookFeed reads the main post feed and returns the author name
// inferred from its titles, for the media-only files to reuse.
func parseFacebookFeed(arc *archive.Archive, path string, opts Options, result *Result) (string, error) {
	data, err := arc.Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	var feed []fbPost
	if err := json.Unmarshal(data, &feed); err != nil {
		return "", fmt.Errorf("invalid posts feed %s: %w", path, err)
	}

	var author string
	for i, raw := range feed {
		if raw.Timestamp == 0 {
			result.errorf("facebook_posts: skipping feed entry %d: no timestamp", i)
			continue
		}

		title := fixMojibake(strings.TrimSpace(raw.Title))
		if author == "" {
			if m := fbTitleAuthor.FindStringSubmatch(title); m != nil {
				author = opts.People.Resolve(m[1])
			}
		}

		post := entities.Post{
			ID:        uuid.NewString(),
			Timestamp: time.Unix(raw.Timestamp, 0).UTC(),
			Source:    SourceFacebookPosts,
			Activity:  title,
		}
		if author != "" {
			post.Author = author
		} else {
			post.Author = opts.People.Self()
		}

		for _, d := range raw.Data {
			if d.Post != "" {
				post.Text = fixMojibake(d.Post)
				break
			}
		}

		for _, a := range raw.Attachments {
			for _, d := range a.Data {
				if d.ExternalContext != nil && d.ExternalContext.URL != "" && post.LinkURL == "" {
					post.LinkURL = d.ExternalContext.URL
				}
				if d.Media != nil && d.Media.URI != "" {
					post.Media = append(post.Media, readPostMedia(arc, d.Media.URI, result))
					if post.Text == "" && d.Media.Description != "" {
						post.Text = fixMojibake(d.Media.Description)
					}
				}
			}
		}

		if post.Text == "" && post.Activity == "" && post.LinkURL == "" && len(post.Media) == 0 {
			continue
		}
		post.ExternalID = postExternalID(&post)
		result.Posts = append(result.Posts, post)
	}
	return author, nil
}

// parseFacebookMediaFile turns the photo/video list files into one post
// per media item.
func parseFacebookMediaFile(arc *archive.Archive, path string, opts Options, author, activity string, result *Result) error {
	data, err := arc.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var items []fbMediaItem
	if strings.HasSuffix(path, fbVideosFile) {
		var body fbVideosFileBody
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("invalid media file %s: %w", path, err)
		}
		items = body.Videos
	} else {
		var body fbPhotosFileBody
		if err := json.Unmarshal(data, &body); err != nil {
			return fmt.Errorf("invalid media file %s: %w", path, err)
		}
		items = body.OtherPhotos
	}

	for i, item := range items {
		if item.URI == "" {
			result.errorf("facebook_posts: skipping media entry %d in %s: no uri", i, path)
			continue
		}
		if item.CreationTimestamp == 0 {
			result.errorf("facebook_posts: skipping media entry %d in %s: no timestamp", i, path)
			continue
		}
		post := entities.Post{
			ID:        uuid.NewString(),
			Author:    author,
			Timestamp: time.Unix(item.CreationTimestamp, 0).UTC(),
			Source:    SourceFacebookPosts,
			Activity:  activity,
			Media:     []entities.PostMedia{readPostMedia(arc, item.URI, result)},
		}
		if d := fixMojibake(item.Description); d != "" {
			post.Text = d
		} else if t := fixMojibake(item.Title); t != "" {
			post.Text = t
		}
		post.ExternalID = postExternalID(&post)
		result.Posts = append(result.Posts, post)
	}
	return nil
}

func readPostMedia(arc *archive.Archive, uri string, result *Result) entities.PostMedia {
	fileName := uri[strings.LastIndex(uri, "/")+1:]
	media := entities.PostMedia{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Type:      identity.ClassifyAttachment(fileName),
		MimeType:  identity.GuessMimeType(fileName),
		SourceURI: uri,
	}
	if data, err := arc.Read(uri); err == nil {
		media.Data = data
		media.Size = int64(len(data))
	} else {
		result.logf("facebook_posts: media %s referenced but missing from archive", uri)
	}
	return media
}

func postExternalID(post *entities.Post) string {
	uris := make([]string, 0, len(post.Media))
	for _, m := range post.Media {
		uris = append(uris, m.SourceURI)
	}
	return identity.PostExternalID(
		post.Source, post.Timestamp, post.Author, post.Text, post.Activity, post.LinkURL, uris)
}
