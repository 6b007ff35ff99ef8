package feed

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

var testOptions = Options{SummaryLength: 5, MaxAspect: 1.34, DefaultAspect: 0.75}

func TestThemeCard(t *testing.T) {
	withImage := domain.Theme{ID: "3", Title: "t", ThemeType: domain.ThemeShare,
		FirstImage: &domain.Image{URL: "http://img/1.jpg", Width: 100, Height: 200}}
	c := ThemeCard(withImage, testOptions)
	assert.Equal(t, "/themes/3", c.Href)
	require.NotNil(t, c.Cover)
	assert.Equal(t, "134.00%", c.CoverRatio)
	assert.Empty(t, c.Summary)

	textOnly := domain.Theme{ID: "4", Content: "hello world"}
	c = ThemeCard(textOnly, testOptions)
	assert.Nil(t, c.Cover)
	assert.Equal(t, "hello…", c.Summary)
}

func TestPostCard(t *testing.T) {
	c := PostCard(domain.Post{ID: "9", Images: []domain.Image{{URL: "http://img/a.png"}}}, testOptions)
	assert.Equal(t, "/posts/9", c.Href)
	require.NotNil(t, c.Cover)
	assert.Equal(t, "75.00%", c.CoverRatio)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "核桃书…", Summary("核桃书论坛", 3))
	assert.Equal(t, "short", Summary("  short ", 10))
	assert.Equal(t, "unlimited", Summary("unlimited", 0))
}

func TestFilter(t *testing.T) {
	themes := []domain.Theme{
		{ID: "1", ThemeType: domain.ThemeShare},
		{ID: "2", ThemeType: domain.ThemeDiscussion},
		{ID: "3", ThemeType: domain.ThemeShare},
	}
	assert.Len(t, Filter(themes, ""), 3)
	shared := Filter(themes, domain.ThemeShare)
	require.Len(t, shared, 2)
	assert.Equal(t, domain.ID("3"), shared[1].ID)
}

func TestColumns_EvenOddSplit(t *testing.T) {
	cards := []Card{{Title: "0"}, {Title: "1"}, {Title: "2"}, {Title: "3"}, {Title: "4"}}
	cols := Columns(cards, 2)
	require.Len(t, cols, 2)
	assert.Equal(t, []Card{{Title: "0"}, {Title: "2"}, {Title: "4"}}, cols[0])
	assert.Equal(t, []Card{{Title: "1"}, {Title: "3"}}, cols[1])

	assert.Len(t, Columns(cards, 0), 1)
}

func TestParsing(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 1, ParsePage("x"))
	assert.Equal(t, 4, ParsePage("4"))

	assert.Equal(t, domain.ThemeAd, ParseType("ad"))
	assert.Equal(t, domain.ThemeType(""), ParseType("bogus"))

	next := "http://api/themes/?page=2"
	empty := ""
	assert.True(t, HasMore(&next))
	assert.False(t, HasMore(&empty))
	assert.False(t, HasMore(nil))
}

func TestGate_RefusesConcurrentLoadForSameKey(t *testing.T) {
	g := NewGate()

	release, ok := g.Acquire("client-a")
	require.True(t, ok)

	_, ok = g.Acquire("client-a")
	assert.False(t, ok, "second load for the same key must be refused")

	releaseB, ok := g.Acquire("client-b")
	require.True(t, ok, "other keys are independent")
	releaseB()

	release()
	release() // idempotent

	again, ok := g.Acquire("client-a")
	require.True(t, ok)
	again()
}

func TestGate_OneWinnerUnderContention(t *testing.T) {
	g := NewGate()
	var admitted atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := g.Acquire("same"); ok {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}
