package extract

import (
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// FormatCitation renders a short reference: "Smith et al. (2021). Title."
// A single author is named without "et al."; no authors gives "Unknown".
func FormatCitation(paper types.PaperDescriptor) string {
	author := "Unknown"
	var named []string
	for _, a := range paper.Authors {
		if a = strings.TrimSpace(a); a != "" {
			named = append(named, a)
		}
	}
	switch len(named) {
	case 0:
	case 1:
		author = named[0]
	default:
		author = named[0] + " et al."
	}

	year := "n.d."
	if paper.Year > 0 {
		year = fmt.Sprint(paper.Year)
	}

	title := strings.TrimSpace(paper.Title)
	if title != "" && !strings.ContainsAny(title[len(title)-1:], ".?!") {
		title += "."
	}
	return strings.TrimSpace(fmt.Sprintf("%s (%s). %s", author, year, title))
}
