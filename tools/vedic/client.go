// Package vedic is a client for the free VedicScriptures API
// (https://vedicscriptures.github.io), the source of the Bhagavad Gita
// verse corpus: 18 chapters, ~700 verses with Sanskrit, transliteration,
// English translations and scholar commentaries.
package vedic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentworks/casestudio/internal/gita"
)

const (
	DefaultBaseURL = "https://vedicscriptures.github.io"

	fetchRetries = 3
	retryDelay   = 2 * time.Second
)

// translationPriority orders the authors whose English translation is
// preferred as the primary one for a verse.
var translationPriority = []string{"siva", "prabhu", "purohit", "gambir", "adi", "san", "abhinav", "raman"}

// authorNames maps the API's short author keys to display names.
var authorNames = map[string]string{
	"tej":     "Swami Tejomayananda",
	"siva":    "Swami Sivananda",
	"purohit": "Shri Purohit Swami",
	"chinmay": "Swami Chinmayananda",
	"san":     "Dr. S. Sankaranarayan",
	"adi":     "Swami Adidevananda",
	"gambir":  "Swami Gambirananda",
	"madhav":  "Sri Madhavacharya",
	"anand":   "Sri Anandgiri",
	"rams":    "Swami Ramsukhdas",
	"raman":   "Sri Ramanuja",
	"abhinav": "Sri Abhinav Gupta",
	"sankar":  "Sri Shankaracharya",
	"jaya":    "Sri Jayatritha",
	"vallabh": "Sri Vallabhacharya",
	"ms":      "Sri Madhusudan Saraswati",
	"srid":    "Sri Sridhara Swami",
	"dhan":    "Sri Dhanpati",
	"venkat":  "Vedantadeshikacharya",
	"puru":    "Sri Purushottamji",
	"neel":    "Sri Neelkanth",
	"prabhu":  "A.C. Bhaktivedanta Swami Prabhupada",
}

type Client struct {
	BaseURL string
	client  *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Chapters fetches all 18 chapter summaries.
func (c *Client) Chapters(ctx context.Context) ([]gita.Chapter, error) {
	body, status, err := c.get(ctx, "/chapters")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("chapters: unexpected status %d", status)
	}
	var chapters []gita.Chapter
	if err := json.Unmarshal(body, &chapters); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	return chapters, nil
}

// authorEntry is one author's block inside a verse document.
type authorEntry struct {
	Author          string `json:"author"`
	TranslationEn   string `json:"et"`
	TranslationHi   string `json:"ht"`
	CommentaryEn    string `json:"ec"`
	CommentaryHi    string `json:"hc"`
	CommentarySansk string `json:"sc"`
}

// Verse fetches one verse with its translations and commentaries.
// Returns found=false for verses the API does not have.
func (c *Client) Verse(ctx context.Context, chapter, verse int) (gita.Verse, []gita.Commentary, bool, error) {
	var body []byte
	var status int
	var err error
	for attempt := 0; attempt < fetchRetries; attempt++ {
		body, status, err = c.get(ctx, fmt.Sprintf("/slok/%d/%d", chapter, verse))
		if err == nil || ctx.Err() != nil {
			break
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return gita.Verse{}, nil, false, ctx.Err()
		}
	}
	if err != nil {
		return gita.Verse{}, nil, false, fmt.Errorf("fetch verse %d.%d: %w", chapter, verse, err)
	}
	if status == http.StatusNotFound {
		return gita.Verse{}, nil, false, nil
	}
	if status != http.StatusOK {
		return gita.Verse{}, nil, false, fmt.Errorf("fetch verse %d.%d: unexpected status %d", chapter, verse, status)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return gita.Verse{}, nil, false, fmt.Errorf("decode verse %d.%d: %w", chapter, verse, err)
	}

	v := gita.Verse{Chapter: chapter, Verse: verse}
	unmarshalField(raw, "_id", &v.VerseID)
	unmarshalField(raw, "slok", &v.Sanskrit)
	unmarshalField(raw, "transliteration", &v.Transliteration)
	if v.VerseID == "" {
		v.VerseID = fmt.Sprintf("BG%d.%d", chapter, verse)
	}

	authors := map[string]authorEntry{}
	for key := range authorNames {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var entry authorEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		authors[key] = entry
	}

	v.TranslationEn = primaryTranslation(authors)

	var commentaries []gita.Commentary
	for key, name := range authorNames {
		entry, ok := authors[key]
		if !ok {
			continue
		}
		text := strings.TrimSpace(entry.CommentaryEn)
		if text == "" {
			continue
		}
		author := entry.Author
		if author == "" {
			author = name
		}
		commentaries = append(commentaries, gita.Commentary{
			VerseID:      v.VerseID,
			Author:       author,
			CommentaryEn: text,
		})
	}

	return v, commentaries, true, nil
}

func primaryTranslation(authors map[string]authorEntry) string {
	for _, key := range translationPriority {
		if t := strings.TrimSpace(authors[key].TranslationEn); t != "" {
			return t
		}
	}
	for _, entry := range authors {
		if t := strings.TrimSpace(entry.TranslationEn); t != "" {
			return t
		}
	}
	return ""
}

func unmarshalField(raw map[string]json.RawMessage, key string, dst *string) {
	if data, ok := raw[key]; ok {
		_ = json.Unmarshal(data, dst)
	}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
