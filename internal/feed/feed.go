// Package feed prepares the home feed: cards, the masonry columns, paging
// and the per-client in-flight gate for "load more".
package feed

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hetaoshu/hetaoshu-web/internal/carousel"
	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

type Options struct {
	SummaryLength int
	MaxAspect     float64
	DefaultAspect float64
}

// Card is one tile of the feed.
type Card struct {
	Href       string
	Title      string
	Type       domain.ThemeType
	Author     domain.User
	CreatedAt  domain.Timestamp
	Cover      *domain.Image
	CoverRatio string
	Summary    string
	PostCount  int
}

func ThemeCard(t domain.Theme, opts Options) Card {
	c := Card{
		Href:      fmt.Sprintf("/themes/%s", t.ID),
		Title:     t.Title,
		Type:      t.ThemeType,
		Author:    t.Author,
		CreatedAt: t.CreatedAt,
		Cover:     t.Cover(),
		PostCount: t.PostCount,
	}
	c.fillCover(opts, t.Content)
	return c
}

func PostCard(p domain.Post, opts Options) Card {
	c := Card{
		Href:      fmt.Sprintf("/posts/%s", p.ID),
		Title:     p.Title,
		Type:      p.ThemeType,
		Author:    p.Author,
		CreatedAt: p.CreatedAt,
	}
	if len(p.Images) > 0 && p.Images[0].URL != "" {
		c.Cover = &p.Images[0]
	}
	c.fillCover(opts, p.Content)
	return c
}

// fillCover sizes the cover with the carousel rule, or falls back to a text
// summary for cards without an image.
func (c *Card) fillCover(opts Options, content string) {
	if c.Cover != nil {
		ratio := carousel.HeightRatio([]domain.Image{*c.Cover}, opts.MaxAspect, opts.DefaultAspect)
		c.CoverRatio = carousel.PaddingBottom(ratio)
		return
	}
	c.Summary = Summary(content, opts.SummaryLength)
}

// Summary returns the first n characters of content.
func Summary(content string, n int) string {
	content = strings.TrimSpace(content)
	if n <= 0 || utf8.RuneCountInString(content) <= n {
		return content
	}
	runes := []rune(content)
	return string(runes[:n]) + "…"
}

// Filter keeps themes of type t; an empty t keeps everything.
func Filter(themes []domain.Theme, t domain.ThemeType) []domain.Theme {
	if t == "" {
		return themes
	}
	out := make([]domain.Theme, 0, len(themes))
	for _, theme := range themes {
		if theme.ThemeType == t {
			out = append(out, theme)
		}
	}
	return out
}

// Columns deals cards into n columns round robin, so with two columns
// even positions go left and odd positions go right.
func Columns(cards []Card, n int) [][]Card {
	if n < 1 {
		n = 1
	}
	cols := make([][]Card, n)
	for i, c := range cards {
		cols[i%n] = append(cols[i%n], c)
	}
	return cols
}

// HasMore reports whether the API advertised a next page.
func HasMore(next *string) bool {
	return next != nil && *next != ""
}

// ParsePage reads a 1-based page number, defaulting to 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ParseType reads the type filter; unknown values mean no filter.
func ParseType(raw string) domain.ThemeType {
	t := domain.ThemeType(raw)
	if !t.Known() {
		return ""
	}
	return t
}
