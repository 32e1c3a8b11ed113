// Package gita holds the Bhagavad Gita corpus types shared by the
// verse store and the gita-guide agent, plus an in-memory full-text
// index over the verses.
package gita

// Verse is one verse of the corpus as stored in Postgres.
type Verse struct {
	VerseID         string `json:"verse_id"`
	Chapter         int    `json:"chapter"`
	Verse           int    `json:"verse"`
	Sanskrit        string `json:"sanskrit"`
	Transliteration string `json:"transliteration"`
	TranslationEn   string `json:"translation_en"`
}

// Chapter is one chapter summary, as reported by the corpus source.
type Chapter struct {
	Number      int `json:"chapter_number"`
	VersesCount int `json:"verses_count"`
}

// Commentary is one commentary on a verse.
type Commentary struct {
	VerseID      string `json:"verse_id"`
	Author       string `json:"author"`
	CommentaryEn string `json:"commentary_en"`
}

// KeyConcepts are the philosophical concepts the intent analysis hints
// the model with.
var KeyConcepts = []string{
	"Dharma", "Karma Yoga", "Bhakti Yoga", "Jnana Yoga", "Dhyana Yoga",
	"Atman", "Brahman", "Maya", "Gunas", "Sthitaprajna",
	"Nishkama Karma", "Yoga", "Svadharma", "Moksha", "Prakriti",
	"Sankhya", "Tyaga", "Ishvara", "Samsara", "Vishvarupa",
}

// CommonThemes are recurring corpus themes, used for theme tagging.
var CommonThemes = []string{
	"duty", "action", "devotion", "knowledge", "meditation",
	"detachment", "surrender", "faith", "renunciation", "liberation",
	"soul", "divine nature", "cosmic form", "self-realization",
	"equanimity", "karma", "wisdom", "peace",
}
