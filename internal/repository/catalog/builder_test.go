package catalog

import (
	"strings"
	"testing"

	"github.com/openshelf/bookdex/internal/domain/search"
	"github.com/openshelf/bookdex/internal/domain/topic"
)

func mustQuery(t *testing.T, text string, criteria search.Criteria, lang, format string, perPage, page int) search.Query {
	t.Helper()
	q, err := search.NewQuery(text, criteria, lang, format, perPage, page)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	return q
}

func TestBuildSearchSQL_DefaultColumns(t *testing.T) {
	q := mustQuery(t, "pride", search.CriteriaAny, "", "", 25, 1)

	fiction := BuildSearchSQL(topic.Fiction, q)
	if !strings.Contains(fiction.SearchSQL, "MATCH(Title, Author, Series) AGAINST(?)") {
		t.Errorf("fiction search sql = %q", fiction.SearchSQL)
	}
	if !strings.Contains(fiction.SearchSQL, "FROM fiction ") {
		t.Errorf("fiction table missing: %q", fiction.SearchSQL)
	}

	scitech := BuildSearchSQL(topic.SciTech, q)
	if !strings.Contains(scitech.SearchSQL, "Periodical, VolumeInfo") {
		t.Errorf("sci-tech should use the wider column group: %q", scitech.SearchSQL)
	}
	if !strings.Contains(scitech.SearchSQL, "FROM updated ") {
		t.Errorf("sci-tech table missing: %q", scitech.SearchSQL)
	}
}

func TestBuildSearchSQL_SingleCriteria(t *testing.T) {
	q := mustQuery(t, "austen", search.CriteriaAuthor, "", "", 25, 1)
	data := BuildSearchSQL(topic.Fiction, q)
	if !strings.Contains(data.SearchSQL, "MATCH(Author) AGAINST(?)") {
		t.Errorf("search sql = %q", data.SearchSQL)
	}
	if strings.Contains(data.SearchSQL, "Title, Author, Series") {
		t.Error("single criteria must not use the default column group")
	}
}

func TestBuildSearchSQL_NoUserTextInSQL(t *testing.T) {
	q := mustQuery(t, "pride'; DROP TABLE fiction; --", search.CriteriaAny, "Eng'lish", "ep'ub", 25, 1)
	data := BuildSearchSQL(topic.Fiction, q)

	for _, needle := range []string{"DROP TABLE", "Eng'lish", "ep'ub"} {
		if strings.Contains(data.SearchSQL, needle) || strings.Contains(data.CountSQL, needle) {
			t.Errorf("user input leaked into SQL text: %q", needle)
		}
	}
}

func TestBuildSearchSQL_Filters(t *testing.T) {
	q := mustQuery(t, "pride", search.CriteriaAny, "English", "epub", 50, 3)
	data := BuildSearchSQL(topic.Fiction, q)

	langIdx := strings.Index(data.SearchSQL, "Language = ?")
	formatIdx := strings.Index(data.SearchSQL, "Extension = ?")
	if langIdx == -1 || formatIdx == -1 || langIdx > formatIdx {
		t.Errorf("language filter must precede format filter: %q", data.SearchSQL)
	}

	// text twice (relevance column + match predicate), language, format, offset, limit
	want := []any{"pride", "pride", "English", "epub", 100, 50}
	if len(data.SearchArgs) != len(want) {
		t.Fatalf("SearchArgs = %v", data.SearchArgs)
	}
	for i, v := range want {
		if data.SearchArgs[i] != v {
			t.Errorf("SearchArgs[%d] = %v, want %v", i, data.SearchArgs[i], v)
		}
	}

	wantCount := []any{"pride", "English", "epub"}
	if len(data.CountArgs) != len(wantCount) {
		t.Fatalf("CountArgs = %v", data.CountArgs)
	}
}

func TestBuildSearchSQL_CountHasNoLimitOrRelevance(t *testing.T) {
	q := mustQuery(t, "pride", search.CriteriaAny, "", "", 25, 2)
	data := BuildSearchSQL(topic.Fiction, q)

	if strings.Contains(data.CountSQL, "LIMIT") {
		t.Errorf("count sql must not paginate: %q", data.CountSQL)
	}
	if strings.Contains(data.CountSQL, "Relevance") {
		t.Errorf("count sql must not compute relevance: %q", data.CountSQL)
	}
	if !strings.Contains(data.SearchSQL, "LIMIT ?, ?") {
		t.Errorf("row sql must paginate via placeholders: %q", data.SearchSQL)
	}
	if !strings.Contains(data.CountSQL, "MD5 != '' AND Title != '' AND Author != ''") {
		t.Errorf("count sql must carry the base predicate: %q", data.CountSQL)
	}
}

func TestBuildMetadataSQL(t *testing.T) {
	fiction := BuildMetadataSQL(topic.Fiction)
	if !strings.Contains(fiction, "t.Identifier AS Identifier") {
		t.Errorf("fiction metadata sql = %q", fiction)
	}
	if !strings.Contains(fiction, "LEFT JOIN fiction_description") {
		t.Errorf("fiction metadata sql = %q", fiction)
	}

	scitech := BuildMetadataSQL(topic.SciTech)
	if !strings.Contains(scitech, "t.IdentifierWODash AS Identifier") {
		t.Errorf("sci-tech metadata sql = %q", scitech)
	}
	if !strings.Contains(scitech, "LEFT JOIN description") {
		t.Errorf("sci-tech metadata sql = %q", scitech)
	}
	if !strings.Contains(scitech, "WHERE t.MD5 = ? LIMIT 1") {
		t.Errorf("metadata sql must target one md5: %q", scitech)
	}
}
