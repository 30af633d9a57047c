package youtube

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// extractEmbeddedJSON pulls the JSON object assigned to a well-known
// variable (ytInitialData, ytInitialPlayerResponse) out of a watch or
// listing page. The object is located by balanced-brace scanning since
// the page embeds it inside a script tag.
func extractEmbeddedJSON(page []byte, marker string) (interface{}, error) {
	idx := bytes.Index(page, []byte(marker))
	if idx < 0 {
		return nil, fmt.Errorf("marker %q not found in page", marker)
	}
	start := bytes.IndexByte(page[idx:], '{')
	if start < 0 {
		return nil, fmt.Errorf("no json object after marker %q", marker)
	}
	start += idx

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(page); i++ {
		ch := page[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var out interface{}
				if err := json.Unmarshal(page[start:i+1], &out); err != nil {
					return nil, fmt.Errorf("decode %s: %w", marker, err)
				}
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("unterminated json object after marker %q", marker)
}

// parseVideoStubs collects every renderer object of the given kind from
// a listing payload, preserving document order.
func parseVideoStubs(page interface{}, rendererKey string) []VideoStub {
	var stubs []VideoStub
	walk(page, func(m map[string]interface{}) {
		raw, ok := m[rendererKey].(map[string]interface{})
		if !ok {
			return
		}
		id, _ := raw["videoId"].(string)
		if id == "" {
			return
		}
		stubs = append(stubs, VideoStub{ID: id, Title: rendererTitle(raw)})
	})
	return stubs
}

// findContinuationToken returns the next page token of a listing, or ""
// when the listing is exhausted.
func findContinuationToken(page interface{}) string {
	token := ""
	walk(page, func(m map[string]interface{}) {
		if token != "" {
			return
		}
		cmd, ok := m["continuationCommand"].(map[string]interface{})
		if !ok {
			return
		}
		if t, ok := cmd["token"].(string); ok {
			token = t
		}
	})
	return token
}

// rendererTitle handles both title shapes YouTube uses: runs for channel
// tabs, simpleText for playlists.
func rendererTitle(renderer map[string]interface{}) string {
	title, ok := renderer["title"].(map[string]interface{})
	if !ok {
		return ""
	}
	if simple, ok := title["simpleText"].(string); ok && simple != "" {
		return simple
	}
	runs, ok := title["runs"].([]interface{})
	if !ok || len(runs) == 0 {
		return ""
	}
	first, ok := runs[0].(map[string]interface{})
	if !ok {
		return ""
	}
	text, _ := first["text"].(string)
	return text
}

// walk visits every JSON object in the payload depth-first. Arrays keep
// their order and object keys are visited sorted, so a given payload
// always produces the same traversal.
func walk(v interface{}, visit func(map[string]interface{})) {
	switch node := v.(type) {
	case map[string]interface{}:
		visit(node)
		// Map iteration order is randomized, so descend in key order to
		// keep repeated parses of the same payload identical.
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(node[k], visit)
		}
	case []interface{}:
		for _, child := range node {
			walk(child, visit)
		}
	}
}
