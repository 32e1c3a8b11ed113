package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentworks/casestudio/internal/gita"
)

// Verse corpus operations. The Store satisfies the gita-guide agent's
// Corpus interface.

// AllVerses loads the full corpus ordered by chapter and verse.
func (s *Store) AllVerses(ctx context.Context) ([]gita.Verse, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT verse_id, chapter, verse, sanskrit, transliteration, translation_en
FROM gita_verses
ORDER BY chapter, verse
`)
	if err != nil {
		return nil, fmt.Errorf("list verses: %w", err)
	}
	defer rows.Close()

	var verses []gita.Verse
	for rows.Next() {
		var v gita.Verse
		if err := rows.Scan(&v.VerseID, &v.Chapter, &v.Verse, &v.Sanskrit, &v.Transliteration, &v.TranslationEn); err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

// VersesByKeywords returns verses whose translation matches any of the
// keywords, case-insensitively.
func (s *Store) VersesByKeywords(ctx context.Context, keywords []string, limit int) ([]gita.Verse, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	conditions := make([]string, len(keywords))
	args := make([]interface{}, 0, len(keywords)+1)
	for i, kw := range keywords {
		conditions[i] = fmt.Sprintf("translation_en ILIKE $%d", i+1)
		args = append(args, "%"+kw+"%")
	}
	args = append(args, limit)
	query := fmt.Sprintf(`
SELECT verse_id, chapter, verse, sanskrit, transliteration, translation_en
FROM gita_verses
WHERE %s
ORDER BY chapter, verse
LIMIT $%d
`, strings.Join(conditions, " OR "), len(keywords)+1)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search verses by keywords: %w", err)
	}
	defer rows.Close()

	var verses []gita.Verse
	for rows.Next() {
		var v gita.Verse
		if err := rows.Scan(&v.VerseID, &v.Chapter, &v.Verse, &v.Sanskrit, &v.Transliteration, &v.TranslationEn); err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

// VersesByTheme returns verses tagged with the given theme.
func (s *Store) VersesByTheme(ctx context.Context, theme string, limit int) ([]gita.Verse, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT v.verse_id, v.chapter, v.verse, v.sanskrit, v.transliteration, v.translation_en
FROM gita_verses v
JOIN gita_themes t ON t.verse_id = v.verse_id
WHERE t.theme = $1
ORDER BY v.chapter, v.verse
LIMIT $2
`, theme, limit)
	if err != nil {
		return nil, fmt.Errorf("search verses by theme: %w", err)
	}
	defer rows.Close()

	var verses []gita.Verse
	for rows.Next() {
		var v gita.Verse
		if err := rows.Scan(&v.VerseID, &v.Chapter, &v.Verse, &v.Sanskrit, &v.Transliteration, &v.TranslationEn); err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

// VerseCommentaries returns up to limit commentaries for a verse.
func (s *Store) VerseCommentaries(ctx context.Context, verseID string, limit int) ([]gita.Commentary, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT verse_id, author, commentary_en
FROM gita_verse_commentaries
WHERE verse_id = $1
ORDER BY author
LIMIT $2
`, verseID, limit)
	if err != nil {
		return nil, fmt.Errorf("list commentaries for %s: %w", verseID, err)
	}
	defer rows.Close()

	var out []gita.Commentary
	for rows.Next() {
		var c gita.Commentary
		if err := rows.Scan(&c.VerseID, &c.Author, &c.CommentaryEn); err != nil {
			return nil, fmt.Errorf("scan commentary: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CorpusStats summarises the loaded corpus for the ops endpoint.
type CorpusStats struct {
	Verses       int `json:"verses"`
	Commentaries int `json:"commentaries"`
	Chapters     int `json:"chapters"`
}

func (s *Store) CorpusStats(ctx context.Context) (CorpusStats, error) {
	var stats CorpusStats
	err := s.DB.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM gita_verses),
       (SELECT COUNT(*) FROM gita_verse_commentaries),
       (SELECT COUNT(DISTINCT chapter) FROM gita_verses)
`).Scan(&stats.Verses, &stats.Commentaries, &stats.Chapters)
	if err != nil {
		return CorpusStats{}, fmt.Errorf("corpus stats: %w", err)
	}
	return stats, nil
}
