package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/agentworks/casestudio/internal/gita"
)

// VerseSource feeds the corpus loader, normally the VedicScriptures
// client.
type VerseSource interface {
	Chapters(ctx context.Context) ([]gita.Chapter, error)
	Verse(ctx context.Context, chapter, verse int) (gita.Verse, []gita.Commentary, bool, error)
}

// CorpusLoader pulls the verse corpus from a source and upserts it,
// verse by verse, so a partial load can be resumed by re-running.
type CorpusLoader struct {
	Store  *Store
	Logger *log.Logger

	// Pause between verse fetches, out of politeness to the free API.
	Pause time.Duration
}

func NewCorpusLoader(st *Store, logger *log.Logger) *CorpusLoader {
	if logger == nil {
		logger = log.New(log.Writer(), "[CORPUS] ", log.LstdFlags)
	}
	return &CorpusLoader{Store: st, Logger: logger, Pause: 300 * time.Millisecond}
}

// LoadStats summarises one corpus load.
type LoadStats struct {
	Chapters     int           `json:"chapters"`
	Verses       int           `json:"verses"`
	Commentaries int           `json:"commentaries"`
	Themes       int           `json:"themes"`
	Missing      int           `json:"missing"`
	Duration     time.Duration `json:"-"`
}

// Load fetches every verse of every chapter and upserts it with its
// commentaries and theme tags. A nil chapters filter loads all 18.
func (l *CorpusLoader) Load(ctx context.Context, src VerseSource, only []int) (LoadStats, error) {
	started := time.Now()

	chapters, err := src.Chapters(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("fetch chapters: %w", err)
	}
	wanted := map[int]bool{}
	for _, ch := range only {
		wanted[ch] = true
	}

	var stats LoadStats
	for _, ch := range chapters {
		if len(wanted) > 0 && !wanted[ch.Number] {
			continue
		}
		stats.Chapters++
		l.Logger.Printf("chapter %d: loading %d verses", ch.Number, ch.VersesCount)

		for n := 1; n <= ch.VersesCount; n++ {
			verse, commentaries, found, err := src.Verse(ctx, ch.Number, n)
			if err != nil {
				return stats, err
			}
			if !found {
				stats.Missing++
				continue
			}
			if verse.TranslationEn == "" {
				l.Logger.Printf("warning: verse %s has no English translation, skipping", verse.VerseID)
				stats.Missing++
				continue
			}

			if err := l.Store.UpsertVerse(ctx, verse); err != nil {
				return stats, err
			}
			stats.Verses++

			if err := l.Store.ReplaceVerseCommentaries(ctx, verse.VerseID, commentaries); err != nil {
				return stats, err
			}
			stats.Commentaries += len(commentaries)

			tagged, err := l.Store.TagVerseThemes(ctx, verse.VerseID, matchThemes(verse.TranslationEn))
			if err != nil {
				return stats, err
			}
			stats.Themes += tagged

			if l.Pause > 0 {
				select {
				case <-time.After(l.Pause):
				case <-ctx.Done():
					return stats, ctx.Err()
				}
			}
		}
	}
	stats.Duration = time.Since(started)
	return stats, nil
}

// matchThemes tags a verse with the common themes its translation
// mentions.
func matchThemes(translation string) []string {
	text := strings.ToLower(translation)
	var themes []string
	for _, theme := range gita.CommonThemes {
		if strings.Contains(text, theme) {
			themes = append(themes, theme)
		}
	}
	return themes
}

// UpsertVerse inserts or refreshes one corpus verse.
func (s *Store) UpsertVerse(ctx context.Context, v gita.Verse) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO gita_verses (verse_id, chapter, verse, sanskrit, transliteration, translation_en)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (verse_id) DO UPDATE SET
    sanskrit=EXCLUDED.sanskrit,
    transliteration=EXCLUDED.transliteration,
    translation_en=EXCLUDED.translation_en
`, v.VerseID, v.Chapter, v.Verse, v.Sanskrit, v.Transliteration, v.TranslationEn)
	if err != nil {
		return fmt.Errorf("upsert verse %s: %w", v.VerseID, err)
	}
	return nil
}

// ReplaceVerseCommentaries swaps out all commentaries of a verse in one
// transaction.
func (s *Store) ReplaceVerseCommentaries(ctx context.Context, verseID string, commentaries []gita.Commentary) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commentaries tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gita_verse_commentaries WHERE verse_id=$1`, verseID); err != nil {
		return fmt.Errorf("delete commentaries for %s: %w", verseID, err)
	}
	for _, c := range commentaries {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO gita_verse_commentaries (verse_id, author, commentary_en)
VALUES ($1, $2, $3)
`, verseID, c.Author, c.CommentaryEn); err != nil {
			return fmt.Errorf("insert commentary for %s: %w", verseID, err)
		}
	}
	return tx.Commit()
}

// TagVerseThemes records theme tags for a verse, ignoring ones already
// present. Returns how many were inserted.
func (s *Store) TagVerseThemes(ctx context.Context, verseID string, themes []string) (int, error) {
	inserted := 0
	for _, theme := range themes {
		res, err := s.DB.ExecContext(ctx, `
INSERT INTO gita_themes (verse_id, theme)
VALUES ($1, $2)
ON CONFLICT (verse_id, theme) DO NOTHING
`, verseID, theme)
		if err != nil {
			return inserted, fmt.Errorf("tag theme %q on %s: %w", theme, verseID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}
