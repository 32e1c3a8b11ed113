package vedic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const verseJSON = `{
  "_id": "BG2.47",
  "chapter": 2,
  "verse": 47,
  "slok": "कर्मण्येवाधिकारस्ते मा फलेषु कदाचन।",
  "transliteration": "karmany evadhikaras te ma phalesu kadacana",
  "siva": {
    "author": "Swami Sivananda",
    "et": "Thy right is to work only, but never with its fruits.",
    "ec": "Actions done with expectation of rewards bring bondage."
  },
  "prabhu": {
    "author": "A.C. Bhaktivedanta Swami Prabhupada",
    "et": "You have a right to perform your prescribed duty."
  },
  "madhav": {
    "author": "Sri Madhavacharya",
    "sc": "अत्र कर्मणि एव अधिकारः"
  }
}`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chapters", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"chapter_number":1,"verses_count":47},{"chapter_number":2,"verses_count":72}]`))
	})
	mux.HandleFunc("/slok/2/47", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(verseJSON))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func TestChapters(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient()
	c.BaseURL = srv.URL

	chapters, err := c.Chapters(context.Background())
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	if len(chapters) != 2 || chapters[1].Number != 2 || chapters[1].VersesCount != 72 {
		t.Fatalf("chapters = %+v", chapters)
	}
}

func TestVersePicksPriorityTranslation(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient()
	c.BaseURL = srv.URL

	verse, commentaries, found, err := c.Verse(context.Background(), 2, 47)
	if err != nil {
		t.Fatalf("Verse: %v", err)
	}
	if !found {
		t.Fatal("expected verse to be found")
	}
	if verse.VerseID != "BG2.47" || verse.Chapter != 2 || verse.Verse != 47 {
		t.Fatalf("verse = %+v", verse)
	}
	// Sivananda outranks Prabhupada in the priority list.
	if verse.TranslationEn != "Thy right is to work only, but never with its fruits." {
		t.Errorf("translation = %q", verse.TranslationEn)
	}
	if verse.Sanskrit == "" || verse.Transliteration == "" {
		t.Errorf("missing sanskrit or transliteration: %+v", verse)
	}

	// Only Sivananda has an English commentary in the fixture.
	if len(commentaries) != 1 {
		t.Fatalf("commentaries = %+v", commentaries)
	}
	if commentaries[0].Author != "Swami Sivananda" || commentaries[0].VerseID != "BG2.47" {
		t.Errorf("commentary = %+v", commentaries[0])
	}
}

func TestVerseNotFound(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	c := NewClient()
	c.BaseURL = srv.URL

	_, _, found, err := c.Verse(context.Background(), 1, 99)
	if err != nil {
		t.Fatalf("Verse: %v", err)
	}
	if found {
		t.Fatal("expected verse 1.99 to be missing")
	}
}
