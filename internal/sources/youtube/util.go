package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var watchURLPattern = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func isURL(input string) bool {
	u, err := url.Parse(strings.TrimSpace(input))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isYouTubeHost(input string) bool {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(u.Host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}

func isVideoURL(input string) bool {
	if !isURL(input) || !isYouTubeHost(input) {
		return false
	}
	u, _ := url.Parse(strings.TrimSpace(input))
	if strings.HasSuffix(u.Host, "youtu.be") {
		return strings.Trim(u.Path, "/") != ""
	}
	return u.Query().Get("v") != ""
}

func isPlaylistURL(input string) bool {
	if !isURL(input) || !isYouTubeHost(input) {
		return false
	}
	u, _ := url.Parse(strings.TrimSpace(input))
	// A watch URL that carries a list param counts as a playlist.
	return u.Query().Get("list") != ""
}

func extractVideoID(input string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if strings.HasSuffix(u.Host, "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
		return "", errors.New("invalid YouTube URL format")
	}
	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}
	return "", errors.New("invalid YouTube URL format")
}

// searchVideoIDs scrapes the results page for the first limit video IDs, in
// result order, without duplicates.
func (r *Resolver) searchVideoIDs(ctx context.Context, query string, limit int) ([]string, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", r.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("YouTube search failed with status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, m := range watchURLPattern.FindAllStringSubmatch(string(body), -1) {
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}
