package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the YouTube Data API v3 root.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

var (
	// ErrUnsupportedURL is returned for links that are not recognised video pages.
	ErrUnsupportedURL = errors.New("unsupported video url")
	// ErrVideoNotFound is returned when the provider knows nothing about the id.
	ErrVideoNotFound = errors.New("video not found")
)

// Metadata is what an external host reports about a video.
type Metadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

// YouTubeClient looks up video metadata through the Data API.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewYouTubeClient builds a client. An empty baseURL uses DefaultBaseURL.
func NewYouTubeClient(apiKey, baseURL string, timeout time.Duration) *YouTubeClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YouTubeClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Supports reports whether rawURL points at a YouTube video.
func (c *YouTubeClient) Supports(rawURL string) bool {
	_, err := ExtractVideoID(rawURL)
	return err == nil
}

type ytVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string `json:"title"`
			Thumbnails struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// Probe resolves a video URL into its duration, title and thumbnail.
func (c *YouTubeClient) Probe(ctx context.Context, rawURL string) (Metadata, error) {
	id, err := ExtractVideoID(rawURL)
	if err != nil {
		return Metadata{}, err
	}
	if c.apiKey == "" {
		return Metadata{}, errors.New("youtube api key not configured")
	}

	val := url.Values{}
	val.Set("part", "snippet,contentDetails")
	val.Set("id", id)
	val.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos?"+val.Encode(), nil)
	if err != nil {
		return Metadata{}, fmt.Errorf("build youtube request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("youtube videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("youtube videos status %d", resp.StatusCode)
	}

	var body ytVideosResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Metadata{}, fmt.Errorf("decode youtube response: %w", err)
	}
	if len(body.Items) == 0 {
		return Metadata{}, fmt.Errorf("%s: %w", id, ErrVideoNotFound)
	}

	item := body.Items[0]
	thumbs := item.Snippet.Thumbnails
	thumb := thumbs.High.URL
	if thumb == "" {
		thumb = thumbs.Medium.URL
	}
	if thumb == "" {
		thumb = thumbs.Default.URL
	}

	ms, err := ParseISO8601Duration(item.ContentDetails.Duration)
	if err != nil {
		return Metadata{}, err
	}

	return Metadata{
		VideoID:      item.ID,
		Title:        item.Snippet.Title,
		ThumbnailURL: thumb,
		DurationMs:   ms,
	}, nil
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID pulls the 11 character id out of the usual YouTube link shapes.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%q: %w", rawURL, ErrUnsupportedURL)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live" || segments[0] == "v"):
			id = segments[1]
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%q: %w", rawURL, ErrUnsupportedURL)
	}
	return id, nil
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISO8601Duration converts strings like PT1H2M3S into milliseconds.
// Live streams report P0D, which is treated as an unknown duration.
func ParseISO8601Duration(value string) (int64, error) {
	matches := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(value))
	if matches == nil {
		return 0, fmt.Errorf("invalid iso8601 duration %q", value)
	}

	var total int64
	units := []int64{86400, 3600, 60, 1}
	for i, unit := range units {
		part := matches[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid iso8601 duration %q", value)
		}
		total += n * unit
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration %q is empty", value)
	}
	return total * 1000, nil
}
