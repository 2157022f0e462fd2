// Package report lays narrative explanations out into fixed-size pages for
// a printable report. Markdown structural markers (headings, bullets,
// quotes) are kept as formatting hints; inline styling is stripped to plain
// text. A line is never split across a page boundary, and no content is
// ever dropped.
package report

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/doctutor/doctutor/internal/model"
)

// LineRole is the formatting hint attached to a laid-out line.
type LineRole string

const (
	RoleHeading1 LineRole = "heading1"
	RoleHeading2 LineRole = "heading2"
	RoleHeading3 LineRole = "heading3"
	RoleBullet   LineRole = "bullet"
	RoleQuote    LineRole = "quote"
	RoleBody     LineRole = "body"
)

// Line is one laid-out line with its formatting hint and measured height.
type Line struct {
	Text   string   `json:"text"`
	Role   LineRole `json:"role"`
	Height float64  `json:"height"`
}

// Page holds the lines placed on one page. Number is 1-based.
type Page struct {
	Number int    `json:"number"`
	Lines  []Line `json:"lines"`
}

// Report is the final paginated document.
type Report struct {
	Pages      []Page  `json:"pages"`
	PageCount  int     `json:"page_count"`
	PageHeight float64 `json:"page_height"`
	PageWidth  float64 `json:"page_width"`
}

// Measurer estimates the rendered height of one formatted line at the
// given content width. Units are the caller's (points, pixels, ...).
type Measurer func(text string, role LineRole, width float64) float64

// Layout carries the page geometry and the measuring rule.
type Layout struct {
	Height    float64 // usable page content height
	Width     float64 // usable page content width
	TopMargin float64 // vertical offset lines restart at on a new page
	Measure   Measurer
}

// ErrNoContent is returned when there are no explanations to lay out.
var ErrNoContent = errors.New("no explanations to paginate")

var inlineLink = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)

// Paginate lays the explanations out in order: each section title becomes a
// heading line, followed by the explanation text line by line. When adding
// a line would exceed the page height, a new page is started and the
// offset resets to the top margin. A line too tall to fit any page is still
// placed best-effort rather than dropped.
func Paginate(explanations []model.Explanation, layout Layout) (Report, error) {
	if len(explanations) == 0 {
		return Report{}, ErrNoContent
	}
	if layout.Height <= 0 || layout.Width <= 0 {
		return Report{}, errors.New("page height and width must be positive")
	}
	measure := layout.Measure
	if measure == nil {
		measure = EstimateHeight
	}

	var lines []Line
	for _, ex := range explanations {
		lines = append(lines, Line{
			Text: StripInline(ex.Section),
			Role: RoleHeading1,
		})
		for _, raw := range strings.Split(ex.Explanation, "\n") {
			role, text := ClassifyLine(raw)
			if text == "" {
				continue
			}
			lines = append(lines, Line{Text: text, Role: role})
		}
	}

	rep := Report{PageHeight: layout.Height, PageWidth: layout.Width}
	cur := Page{Number: 1}
	offset := layout.TopMargin

	for _, ln := range lines {
		ln.Height = measure(ln.Text, ln.Role, layout.Width)
		if offset+ln.Height > layout.Height && len(cur.Lines) > 0 {
			rep.Pages = append(rep.Pages, cur)
			cur = Page{Number: cur.Number + 1}
			offset = layout.TopMargin
		}
		// Placed even when the line alone exceeds the page height.
		cur.Lines = append(cur.Lines, ln)
		offset += ln.Height
	}
	rep.Pages = append(rep.Pages, cur)
	rep.PageCount = len(rep.Pages)

	return rep, nil
}

// ClassifyLine recognizes markdown structural markers at the start of a raw
// line, returning the formatting hint and the text with the marker removed
// and inline styling stripped.
func ClassifyLine(raw string) (LineRole, string) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "### "):
		return RoleHeading3, StripInline(trimmed[4:])
	case strings.HasPrefix(trimmed, "## "):
		return RoleHeading2, StripInline(trimmed[3:])
	case strings.HasPrefix(trimmed, "# "):
		return RoleHeading1, StripInline(trimmed[2:])
	case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "), strings.HasPrefix(trimmed, "+ "):
		return RoleBullet, StripInline(trimmed[2:])
	case strings.HasPrefix(trimmed, "> "):
		return RoleQuote, StripInline(trimmed[2:])
	case trimmed == ">":
		return RoleQuote, ""
	default:
		return RoleBody, StripInline(trimmed)
	}
}

// StripInline reduces inline markdown styling to plain text: emphasis and
// code markers are removed, links keep their text.
func StripInline(s string) string {
	s = inlineLink.ReplaceAllString(s, "$1")
	s = strings.NewReplacer(
		"**", "",
		"__", "",
		"*", "",
		"_", "",
		"`", "",
	).Replace(s)
	return strings.TrimSpace(s)
}

// Font metrics for the default estimate, in the same unit as the layout.
var roleSizes = map[LineRole]float64{
	RoleHeading1: 18,
	RoleHeading2: 15,
	RoleHeading3: 13,
	RoleBullet:   11,
	RoleQuote:    11,
	RoleBody:     11,
}

// EstimateHeight is the default Measurer: an average-character-width wrap
// estimate at a role-dependent font size with 1.4 line spacing.
func EstimateHeight(text string, role LineRole, width float64) float64 {
	size, ok := roleSizes[role]
	if !ok {
		size = roleSizes[RoleBody]
	}
	charWidth := size * 0.55
	perLine := math.Floor(width / charWidth)
	if perLine < 1 {
		perLine = 1
	}
	rows := math.Ceil(float64(len([]rune(text))) / perLine)
	if rows < 1 {
		rows = 1
	}
	return rows * size * 1.4
}
