package catalog

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/openshelf/bookdex/internal/domain"
	"github.com/openshelf/bookdex/internal/domain/book"
	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

// MapRows converts raw catalog rows into search entries, dropping rows
// that lack md5, title, or author. The query already excludes such rows;
// this guards against malformed upstream data reaching callers anyway.
// One bad row never fails the page: it is logged and skipped.
func MapRows(t topic.Topic, rows []map[string]any, logger *zap.Logger) []search.Entry {
	entries := make([]search.Entry, 0, len(rows))
	for _, row := range rows {
		md5 := asString(row["MD5"])
		title := asString(row["Title"])
		author := asString(row["Author"])
		if md5 == "" || title == "" || author == "" {
			logger.Warn("Dropping catalog row with missing required field",
				zap.String("topic", t.String()), zap.String("md5", md5))
			continue
		}

		entries = append(entries, search.Entry{
			Authors:   author,
			Title:     title,
			MD5:       md5,
			Topic:     t.String(),
			Extension: asString(row["Extension"]),
			Size:      book.FormatSize(asInt64(row["Filesize"])),
			Language:  asString(row["Language"]),
			CoverURL:  ResolveCoverURL(t, asString(row["Coverurl"])),
			Relevance: asFloatPtr(row["Relevance"]),
		})
	}
	return entries
}

// MapMetadata shapes one joined catalog row into a metadata record.
// Empty columns stay empty so JSON omits them. A row without the core
// identity columns means the table shape drifted from what the query
// promises.
func MapMetadata(t topic.Topic, row map[string]any) (book.Metadata, error) {
	md5 := asString(row["MD5"])
	title := asString(row["Title"])
	author := asString(row["Author"])
	if md5 == "" || title == "" || author == "" {
		return book.Metadata{}, fmt.Errorf(
			"%w: %s row missing identity columns", domain.ErrSchemaMismatch, t)
	}

	return book.Metadata{
		Title:       title,
		Authors:     author,
		Series:      asString(row["Series"]),
		Edition:     asString(row["Edition"]),
		Language:    asString(row["Language"]),
		Year:        asString(row["Year"]),
		Publisher:   asString(row["Publisher"]),
		City:        asString(row["City"]),
		Pages:       asString(row["Pages"]),
		VolumeInfo:  asString(row["VolumeInfo"]),
		ISBN:        asString(row["Identifier"]),
		MD5:         md5,
		Topic:       t.String(),
		Extension:   asString(row["Extension"]),
		Size:        book.FormatSize(asInt64(row["Filesize"])),
		CoverURL:    ResolveCoverURL(t, asString(row["Coverurl"])),
		Description: asString(row["Description"]),
		TimeAdded:   asString(row["TimeAdded"]),
	}, nil
}

// ResolveCoverURL resolves a raw cover path fragment against the topic's
// cover host. An absent fragment stays absent; a URL is never synthesized
// from nothing.
func ResolveCoverURL(t topic.Topic, ref string) string {
	if ref == "" {
		return ""
	}
	return topic.ProfileFor(t).CoverBaseURL + "/" + ref
}

// asString renders a row value as a string, treating nil as empty.
func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}

// asInt64 parses a row value as an integer byte count.
func asInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case []byte:
		return asInt64(string(val))
	default:
		return 0
	}
}

// asFloatPtr parses a relevance score, keeping absence distinguishable
// from zero.
func asFloatPtr(v any) *float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil
		}
		f = parsed
	case []byte:
		return asFloatPtr(string(val))
	default:
		return nil
	}
	return &f
}
