package figma

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	fileKeyPattern    = regexp.MustCompile(`^https?://(?:www\.)?figma\.com/(?:file|design)/([A-Za-z0-9]+)(?:/|$|\?|#)`)
	rawFileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

	nodeIDQueryPattern    = regexp.MustCompile(`[?&]node-id=([^&#]*)`)
	nodeIDPathPattern     = regexp.MustCompile(`/nodes/([^/?#]+)`)
	nodeIDFragmentPattern = regexp.MustCompile(`#([0-9:,\- ]+)$`)
	dashedNodeIDPattern   = regexp.MustCompile(`^[0-9]+-[0-9]+$`)
)

// ExtractFileKey extracts the unique file identifier from a Figma URL.
// Supports both /file/ and /design/ URL patterns (e.g., figma.com/file/ABC123/Design-Name).
// Returns an error if the URL doesn't match the expected Figma domain pattern.
func ExtractFileKey(figmaURL string) (string, error) {
	// Anchored to ensure the entire URL matches the expected pattern and prevent bypass attacks.
	matches := fileKeyPattern.FindStringSubmatch(figmaURL)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Figma URL format: must be a valid figma.com URL with /file/ or /design/ path")
	}

	return matches[1], nil
}

// ResolveFileKey accepts either a bare file key or a Figma file URL and returns the key.
func ResolveFileKey(keyOrURL string) (string, error) {
	keyOrURL = strings.TrimSpace(keyOrURL)
	if rawFileKeyPattern.MatchString(keyOrURL) {
		return keyOrURL, nil
	}
	return ExtractFileKey(keyOrURL)
}

// ExtractNodeIDs extracts node IDs from a Figma URL. It understands the node-id query
// parameter, the /nodes/ path segment and a bare #id fragment. Browser URLs encode the
// colon of a node ID as a dash (11933-305884); those are normalized to 11933:305884.
// The result is deduplicated and keeps first-seen order.
func ExtractNodeIDs(figmaURL string) ([]string, error) {
	var raw string

	switch {
	case nodeIDQueryPattern.MatchString(figmaURL):
		value := nodeIDQueryPattern.FindStringSubmatch(figmaURL)[1]
		unescaped, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("invalid node-id parameter %q: %w", value, err)
		}
		raw = unescaped
	case nodeIDPathPattern.MatchString(figmaURL):
		raw = nodeIDPathPattern.FindStringSubmatch(figmaURL)[1]
	case nodeIDFragmentPattern.MatchString(figmaURL):
		raw = nodeIDFragmentPattern.FindStringSubmatch(figmaURL)[1]
	default:
		return []string{}, nil
	}

	ids := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if dashedNodeIDPattern.MatchString(id) {
			id = strings.Replace(id, "-", ":", 1)
		}
		ids = append(ids, id)
	}

	return deduplicateNodeIDs(ids), nil
}

func deduplicateNodeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}

	return result
}
