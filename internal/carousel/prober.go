package carousel

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
)

const (
	// headerLimit bounds how much of an image is read to find its dimensions.
	headerLimit = 512 << 10

	DefaultCacheSize  = 4096
	DefaultFailureTTL = time.Minute
)

type dimensions struct {
	width, height int
}

type probeResult struct {
	dimensions
	// zero for a successful probe
	retryAfter time.Time
}

// Prober finds the dimensions of images the API sent without them by
// reading just enough of each file to decode its header. Sizes are kept in
// a bounded LRU cache by URL. Failures are remembered for failureTTL only.
type Prober struct {
	client     *http.Client
	cache      *lru.Cache
	failureTTL time.Duration
	now        func() time.Time
}

func NewProber(timeout time.Duration) *Prober {
	return NewProberWithCache(timeout, DefaultCacheSize, DefaultFailureTTL)
}

func NewProberWithCache(timeout time.Duration, size int, failureTTL time.Duration) *Prober {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &Prober{
		client:     &http.Client{Timeout: timeout},
		cache:      cache,
		failureTTL: failureTTL,
		now:        time.Now,
	}
}

func (p *Prober) cached(url string) (dimensions, bool) {
	v, ok := p.cache.Get(url)
	if !ok {
		return dimensions{}, false
	}
	res := v.(probeResult)
	if !res.retryAfter.IsZero() && !p.now().Before(res.retryAfter) {
		p.cache.Remove(url)
		return dimensions{}, false
	}
	return res.dimensions, true
}

func (p *Prober) store(url string, d dimensions, failed bool) {
	res := probeResult{dimensions: d}
	if failed {
		if p.failureTTL <= 0 {
			return
		}
		res.retryAfter = p.now().Add(p.failureTTL)
	}
	p.cache.Add(url, res)
}

// Fill returns a copy of images with missing dimensions filled in where they
// could be found. All images are probed concurrently and Fill returns once
// every probe has finished.
func (p *Prober) Fill(ctx context.Context, images []domain.Image) []domain.Image {
	out := make([]domain.Image, len(images))
	copy(out, images)

	var wg sync.WaitGroup
	for i := range out {
		if out[i].HasSize() || out[i].URL == "" {
			continue
		}
		wg.Add(1)
		go func(img *domain.Image) {
			defer wg.Done()
			d := p.dimensions(ctx, img.URL)
			img.Width, img.Height = d.width, d.height
		}(&out[i])
	}
	wg.Wait()
	return out
}

func (p *Prober) dimensions(ctx context.Context, url string) dimensions {
	if d, ok := p.cached(url); ok {
		return d
	}
	d, err := p.probe(ctx, url)
	if err != nil {
		logger.Log.Debug("image probe failed", "url", url, "error", err)
		if ctx.Err() != nil {
			// cancelled by the caller, not a property of the image
			return dimensions{}
		}
	}
	p.store(url, d, err != nil)
	return d
}

func (p *Prober) probe(ctx context.Context, url string) (dimensions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return dimensions{}, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return dimensions{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dimensions{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	cfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, headerLimit))
	if err != nil {
		return dimensions{}, fmt.Errorf("cannot decode image header: %w", err)
	}
	return dimensions{width: cfg.Width, height: cfg.Height}, nil
}
