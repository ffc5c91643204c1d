package book

import (
	"fmt"
	"regexp"
)

var md5Pattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ValidMD5 reports whether s is a 32-character hexadecimal identifier.
func ValidMD5(s string) bool {
	return md5Pattern.MatchString(s)
}

// Metadata is the full per-book record sourced from the catalog,
// normalized so empty columns become absent fields.
type Metadata struct {
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Series      string `json:"series,omitempty"`
	Edition     string `json:"edition,omitempty"`
	Language    string `json:"language,omitempty"`
	Year        string `json:"year,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	City        string `json:"city,omitempty"`
	Pages       string `json:"pages,omitempty"`
	VolumeInfo  string `json:"volume_info,omitempty"`
	ISBN        string `json:"isbn,omitempty"`
	MD5         string `json:"md5"`
	Topic       string `json:"topic"`
	Extension   string `json:"extension,omitempty"`
	Size        string `json:"size"`
	CoverURL    string `json:"cover_url,omitempty"`
	Description string `json:"description,omitempty"`
	TimeAdded   string `json:"time_added,omitempty"`
}

// DownloadLinks maps mirror names to URLs. The GET mirror is the direct
// download and is mandatory; the others are best-effort alternates.
type DownloadLinks struct {
	Get        string `json:"GET"`
	Cloudflare string `json:"Cloudflare,omitempty"`
	IPFS       string `json:"IPFS.io,omitempty"`
	Tor        string `json:"Tor,omitempty"`
}

// Valid reports whether the mandatory GET mirror is present. An invalid
// set must never be cached or served.
func (d DownloadLinks) Valid() bool {
	return d.Get != ""
}

// Mirrors returns the non-empty mirror URLs in preference order,
// direct GET first.
func (d DownloadLinks) Mirrors() []string {
	var urls []string
	for _, u := range []string{d.Get, d.Cloudflare, d.IPFS, d.Tor} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

var sizeUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count using binary unit steps with one
// decimal of precision. Zero or negative counts render as "0 B".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	unit := ""
	for _, u := range sizeUnits {
		value /= 1024
		unit = u
		if value < 1024 {
			break
		}
	}
	return fmt.Sprintf("%.1f %s", value, unit)
}
