package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one independent attempt at locating a field's value on a
// loaded listing page. It returns "" when the field cannot be found; it must
// not fail in any other way. Strategies run against a parsed snapshot of the
// page, so the same document always yields the same value.
type Strategy func(doc *goquery.Document) string

var listingDateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
var chiffreRe = regexp.MustCompile(`(?i)Chiffre(?:-Nr\.?)?:?\s*([A-Za-z0-9-]+)`)
var listingTypeRe = regexp.MustCompile(`\b(Angebot|Gesuch)\b`)

// firstResult evaluates strategies in order and adopts the first non-empty
// trimmed value. A panic inside a strategy counts as "no result" so the next
// tier still gets its chance.
func firstResult(doc *goquery.Document, strategies ...Strategy) string {
	for _, s := range strategies {
		if v := runStrategy(doc, s); v != "" {
			return v
		}
	}
	return ""
}

func runStrategy(doc *goquery.Document, s Strategy) (value string) {
	defer func() {
		if r := recover(); r != nil {
			value = ""
		}
	}()
	return strings.TrimSpace(s(doc))
}

// ── Structured label/value lookup ─────────────────────────────────────────────

// definitionLookup reads <dt>label</dt><dd>value</dd> pairs. exact=false
// accepts labels that merely contain the wanted text.
func definitionLookup(labels []string, exact bool) Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find("dl dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
			if !labelMatches(dt.Text(), labels, exact) {
				return true
			}
			value = strings.TrimSpace(dt.NextFiltered("dd").Text())
			return value == ""
		})
		return value
	}
}

// tableLookup reads <tr><th>label</th><td>value</td></tr> rows, accepting a
// leading <td> as the label cell too.
func tableLookup(labels []string) Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find("table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
			cells := tr.Find("th, td")
			if cells.Length() < 2 {
				return true
			}
			if !labelMatches(cells.First().Text(), labels, false) {
				return true
			}
			value = strings.TrimSpace(cells.Eq(1).Text())
			return value == ""
		})
		return value
	}
}

// listColonLookup reads "Label: value" list items and labelled spans — the
// alternate DOM shape some listings use instead of definition lists.
func listColonLookup(labels []string) Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find("li, p, .row, [class*=\"feld\"]").EachWithBreak(func(_ int, item *goquery.Selection) bool {
			text := strings.TrimSpace(item.Text())
			before, after, found := strings.Cut(text, ":")
			if !found || !labelMatches(before, labels, false) {
				return true
			}
			value = strings.TrimSpace(after)
			return value == ""
		})
		return value
	}
}

func labelMatches(got string, labels []string, exact bool) bool {
	got = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(got), ":")))
	for _, label := range labels {
		want := strings.ToLower(label)
		if exact && got == want {
			return true
		}
		if !exact && strings.Contains(got, want) {
			return true
		}
	}
	return false
}

// labelCascade is the standard tier order for a label/value field: exact
// definition-list match, then partial, then the alternate DOM shapes.
func labelCascade(labels []string) []Strategy {
	return []Strategy{
		definitionLookup(labels, true),
		definitionLookup(labels, false),
		tableLookup(labels),
		listColonLookup(labels),
	}
}

// ── Title heuristics ──────────────────────────────────────────────────────────

// contentHeading prefers a heading inside known content containers and
// rejects headings that are navigation or accessibility artifacts.
func contentHeading() Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find(ContentScopes).Find("h1, h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
			text := strings.TrimSpace(h.Text())
			if text == "" || isNavigationHeading(text) {
				return true
			}
			value = text
			return false
		})
		return value
	}
}

// anyHeading is the loose fallback: the first non-navigational h1 anywhere.
func anyHeading() Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find("h1").EachWithBreak(func(_ int, h *goquery.Selection) bool {
			text := strings.TrimSpace(h.Text())
			if text == "" || isNavigationHeading(text) {
				return true
			}
			value = text
			return false
		})
		return value
	}
}

func isNavigationHeading(text string) bool {
	lower := strings.ToLower(text)
	for _, nav := range navigationHeadings {
		if lower == nav || strings.HasPrefix(lower, nav+" ") {
			return true
		}
	}
	return false
}

// ── Text segmentation ─────────────────────────────────────────────────────────

// selectorText reads the first non-empty match of a structural selector.
func selectorText(selector string) Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value = strings.TrimSpace(s.Text())
			return value == ""
		})
		return value
	}
}

// textSegment slices the page's full visible text between two markers.
func textSegment(start, end string) Strategy {
	return func(doc *goquery.Document) string {
		return sliceBetween(pageText(doc), start, end)
	}
}

// sectionPattern isolates a named section of the page text and applies a
// pattern, returning capture group 1 when present, the whole match otherwise.
func sectionPattern(start, end string, re *regexp.Regexp) Strategy {
	return func(doc *goquery.Document) string {
		section := sliceBetween(pageText(doc), start, end)
		if section == "" {
			section = pageText(doc)
		}
		m := re.FindStringSubmatch(section)
		if m == nil {
			return ""
		}
		if len(m) > 1 && m[1] != "" {
			return m[1]
		}
		return m[0]
	}
}

func pageText(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}

func sliceBetween(text, start, end string) string {
	from := strings.Index(text, start)
	if from < 0 {
		return ""
	}
	from += len(start)
	rest := text[from:]
	to := strings.Index(rest, end)
	if to < 0 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:to])
}
