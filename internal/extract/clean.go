package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Section ids on a LinkedIn profile page worth keeping for extraction.
// Everything else in the page (nav, footer, recommendations, ads) is noise
// that inflates model input for no signal.
var targetSectionIDs = []string{"experience", "education", "projects", "skills", "about"}

var (
	htmlComments    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	interTagSpace   = regexp.MustCompile(`>\s+<`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	emptyAttributes = regexp.MustCompile(`\s+[a-zA-Z-]+=""\s*`)
	spaceBeforeEq   = regexp.MustCompile(`\s+=`)
	spaceAfterEq    = regexp.MustCompile(`=\s+`)
	spaceBeforeGT   = regexp.MustCompile(`\s+>`)
	doubleSpaces    = regexp.MustCompile(`\s{2,}`)
)

// CleanHTML reduces a raw profile page to the sections that carry profile
// data. When the page has a <main> element, the result is a rebuilt <main>
// holding the first section (the profile header) plus the parent sections of
// the known content divs. Pages without <main> pass through whole. The
// output is whitespace-collapsed either way.
func CleanHTML(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("parse profile html: %w", err)
	}

	main := doc.Find("main").First()
	if main.Length() == 0 {
		return optimize(rawHTML), nil
	}

	kept := keepSections(doc, main)
	if len(kept) == 0 {
		outer, err := goquery.OuterHtml(main)
		if err != nil {
			return "", fmt.Errorf("render main element: %w", err)
		}
		return optimize(outer), nil
	}

	var b strings.Builder
	b.WriteString(openMainTag(main))
	for _, sel := range kept {
		outer, err := goquery.OuterHtml(sel)
		if err != nil {
			return "", fmt.Errorf("render profile section: %w", err)
		}
		b.WriteString(outer)
	}
	b.WriteString("</main>")
	return optimize(b.String()), nil
}

// keepSections collects the profile header section plus one parent section
// per target content div, preserving document order of discovery and
// deduplicating sections that host more than one target div.
func keepSections(doc *goquery.Document, main *goquery.Selection) []*goquery.Selection {
	var kept []*goquery.Selection

	if first := main.Find("section").First(); first.Length() > 0 {
		kept = append(kept, first)
	}

	for _, id := range targetSectionIDs {
		div := doc.Find("div#" + id).First()
		if div.Length() == 0 {
			continue
		}
		section := div.Closest("section")
		if section.Length() == 0 || containsNode(kept, section) {
			continue
		}
		kept = append(kept, section)
	}
	return kept
}

func containsNode(sels []*goquery.Selection, sel *goquery.Selection) bool {
	for _, s := range sels {
		if s.Nodes[0] == sel.Nodes[0] {
			return true
		}
	}
	return false
}

// openMainTag rebuilds the opening <main> tag with the original attributes
// so class hooks survive the rewrite.
func openMainTag(main *goquery.Selection) string {
	var b strings.Builder
	b.WriteString("<main")
	for _, attr := range main.Nodes[0].Attr {
		fmt.Fprintf(&b, " %s=%q", attr.Key, attr.Val)
	}
	b.WriteString(">")
	return b.String()
}

// optimize strips comments and collapses whitespace so the model sees
// structure, not formatting.
func optimize(html string) string {
	html = htmlComments.ReplaceAllString(html, "")
	html = interTagSpace.ReplaceAllString(html, "><")
	html = whitespaceRuns.ReplaceAllString(html, " ")
	html = strings.TrimSpace(html)
	html = emptyAttributes.ReplaceAllString(html, " ")
	html = spaceBeforeEq.ReplaceAllString(html, "=")
	html = spaceAfterEq.ReplaceAllString(html, "=")
	html = spaceBeforeGT.ReplaceAllString(html, ">")
	html = doubleSpaces.ReplaceAllString(html, " ")
	return html
}

// Sections returns the outer HTML of every <section> in cleaned profile
// HTML, in document order.
func Sections(cleanedHTML string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleanedHTML))
	if err != nil {
		return nil, fmt.Errorf("parse cleaned html: %w", err)
	}
	var sections []string
	var renderErr error
	doc.Find("section").Each(func(_ int, sel *goquery.Selection) {
		if renderErr != nil {
			return
		}
		outer, err := goquery.OuterHtml(sel)
		if err != nil {
			renderErr = err
			return
		}
		sections = append(sections, outer)
	})
	if renderErr != nil {
		return nil, fmt.Errorf("render section: %w", renderErr)
	}
	return sections, nil
}
