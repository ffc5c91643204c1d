package catalog

import (
	"fmt"

	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

// SQLData holds the row-fetch and count statements for one topic and one
// query, with their ordered parameter lists. Parameter values travel
// out-of-band as placeholders only; user input never reaches the SQL text.
type SQLData struct {
	SearchSQL string
	CountSQL  string

	SearchArgs []any
	CountArgs  []any
}

// matchColumns resolves the full-text column group for a query: the
// topic's default group for "any", a single column otherwise.
func matchColumns(t topic.Topic, criteria search.Criteria) string {
	switch criteria {
	case search.CriteriaTitle:
		return "Title"
	case search.CriteriaAuthor:
		return "Author"
	case search.CriteriaSeries:
		return "Series"
	default:
		return topic.ProfileFor(t).DefaultColumns
	}
}

// BuildSearchSQL produces the row and count statements for one search.
// The match expression is identical in both; only the row query carries
// the relevance column and the LIMIT clause.
func BuildSearchSQL(t topic.Topic, q search.Query) SQLData {
	profile := topic.ProfileFor(t)
	columns := matchColumns(t, q.Criteria)

	// Rows with an empty md5, title, or author are unusable downstream.
	where := fmt.Sprintf(
		"MATCH(%s) AGAINST(?) AND MD5 != '' AND Title != '' AND Author != ''", columns)

	searchSQL := fmt.Sprintf(
		"SELECT MD5, Title, Author, Language, Extension, Filesize, Coverurl, "+
			"MATCH(%s) AGAINST(?) AS Relevance FROM %s WHERE %s",
		columns, profile.Table, where)
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", profile.Table, where)

	searchArgs := []any{q.Text, q.Text}
	countArgs := []any{q.Text}

	if q.Language != "" {
		searchSQL += " AND Language = ?"
		countSQL += " AND Language = ?"
		searchArgs = append(searchArgs, q.Language)
		countArgs = append(countArgs, q.Language)
	}
	if q.Format != "" {
		searchSQL += " AND Extension = ?"
		countSQL += " AND Extension = ?"
		searchArgs = append(searchArgs, q.Format)
		countArgs = append(countArgs, q.Format)
	}

	// Pagination applies to the row query only.
	offset := (q.Page - 1) * q.ResultsPerPage
	searchSQL += " LIMIT ?, ?"
	searchArgs = append(searchArgs, offset, q.ResultsPerPage)

	return SQLData{
		SearchSQL:  searchSQL,
		CountSQL:   countSQL,
		SearchArgs: searchArgs,
		CountArgs:  countArgs,
	}
}

// BuildMetadataSQL produces the single-record metadata statement for one
// topic, joining the catalog table with its description table by md5.
// The topic-specific identifier column is aliased to Identifier so the
// mapper can derive the ISBN uniformly.
func BuildMetadataSQL(t topic.Topic) string {
	p := topic.ProfileFor(t)
	return fmt.Sprintf(
		"SELECT t.Title, t.Author, t.Series, t.Edition, t.Language, t.Year, "+
			"t.Publisher, t.City, t.Pages, t.VolumeInfo, t.%s AS Identifier, "+
			"t.MD5, t.Extension, t.Filesize, t.Coverurl, t.TimeAdded, "+
			"d.%s AS Description "+
			"FROM %s t LEFT JOIN %s d ON d.md5 = t.MD5 WHERE t.MD5 = ? LIMIT 1",
		p.IdentifierColumn, p.DescriptionColumn, p.Table, p.DescriptionTable)
}
