package topic

import "fmt"

// Topic partitions the catalog. Each topic is backed by its own table,
// full-text column group, and cover host path.
type Topic string

const (
	// Fiction is the fiction partition.
	Fiction Topic = "fiction"
	// SciTech is the non-fiction partition.
	SciTech Topic = "sci-tech"
)

// Profile holds the per-topic catalog layout.
type Profile struct {
	// Table is the topic's main catalog table.
	Table string
	// DefaultColumns is the full-text column group used when no single
	// criteria column is requested.
	DefaultColumns string
	// DescriptionTable joins against Table by md5 for long descriptions.
	DescriptionTable string
	// DescriptionColumn is the description text column in DescriptionTable.
	DescriptionColumn string
	// IdentifierColumn is the column the ISBN is derived from.
	IdentifierColumn string
	// CoverBaseURL prefixes relative cover references from the catalog.
	CoverBaseURL string
	// DetailPath is the upstream detail-page path, md5 appended verbatim.
	DetailPath string
}

var profiles = map[Topic]Profile{
	Fiction: {
		Table:             "fiction",
		DefaultColumns:    "Title, Author, Series",
		DescriptionTable:  "fiction_description",
		DescriptionColumn: "Descr",
		IdentifierColumn:  "Identifier",
		CoverBaseURL:      "https://libgen.is/fictioncovers",
		DetailPath:        "/fiction/",
	},
	SciTech: {
		// The non-fiction FULLTEXT index covers the wider bibliographic set.
		Table:             "updated",
		DefaultColumns:    "Title, Author, Series, Publisher, Year, Periodical, VolumeInfo",
		DescriptionTable:  "description",
		DescriptionColumn: "descr",
		IdentifierColumn:  "IdentifierWODash",
		CoverBaseURL:      "https://libgen.is/covers",
		DetailPath:        "/book/index.php?md5=",
	},
}

// All returns both topics in fiction-first order.
func All() []Topic {
	return []Topic{Fiction, SciTech}
}

// Parse validates a topic path value.
func Parse(s string) (Topic, error) {
	t := Topic(s)
	if _, ok := profiles[t]; !ok {
		return "", fmt.Errorf("unknown topic %q", s)
	}
	return t, nil
}

// ProfileFor returns the catalog layout for a topic.
// Panics on an unknown topic; construct topics through Parse.
func ProfileFor(t Topic) Profile {
	p, ok := profiles[t]
	if !ok {
		panic(fmt.Sprintf("no profile for topic %q", t))
	}
	return p
}

func (t Topic) String() string { return string(t) }
