package thumbnail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/metrics"
	"github.com/simonhull/mediaprobe/internal/types"
)

const (
	DefaultMusicBrainzURL = "https://musicbrainz.org/ws/2"
	DefaultCoverArtURL    = "https://coverartarchive.org"
	DefaultUserAgent      = "mediaprobe ( https://github.com/simonhull/mediaprobe )"

	maxCoverBytes = 10 << 20
)

var errCoverStatus = errors.New("unexpected cover provider status")

// CoverOptions configures a CoverProvider. Zero values select the public
// MusicBrainz and Cover Art Archive services, one request per second and an
// in-memory cache.
type CoverOptions struct {
	MusicBrainzURL string
	CoverArtURL    string
	UserAgent      string
	Client         *http.Client
	Cache          Cache
	Limit          rate.Limit
}

// CoverProvider finds album covers: a MusicBrainz release search by album
// and artist, then the release's front-250 image from the Cover Art
// Archive. Lookups and their misses are cached, and concurrent lookups of
// the same key share one request.
type CoverProvider struct {
	musicBrainzURL string
	coverArtURL    string
	userAgent      string
	client         *http.Client
	cache          Cache
	limiter        *rate.Limiter
	group          singleflight.Group
}

func NewCoverProvider(opts CoverOptions) *CoverProvider {
	p := &CoverProvider{
		musicBrainzURL: strings.TrimRight(opts.MusicBrainzURL, "/"),
		coverArtURL:    strings.TrimRight(opts.CoverArtURL, "/"),
		userAgent:      strings.TrimSpace(opts.UserAgent),
		client:         opts.Client,
		cache:          opts.Cache,
	}
	if p.musicBrainzURL == "" {
		p.musicBrainzURL = DefaultMusicBrainzURL
	}
	if p.coverArtURL == "" {
		p.coverArtURL = DefaultCoverArtURL
	}
	if p.userAgent == "" {
		p.userAgent = DefaultUserAgent
	}
	if p.client == nil {
		p.client = &http.Client{Timeout: 10 * time.Second}
	}
	if p.cache == nil {
		p.cache = NewMemoryCache(0)
	}
	limit := opts.Limit
	if limit == 0 {
		limit = rate.Every(time.Second)
	}
	p.limiter = rate.NewLimiter(limit, 1)
	return p
}

// Cover returns the front cover for the release md belongs to, or nil when
// there is none or md carries too little to search with.
func (p *CoverProvider) Cover(ctx context.Context, md *types.AudioMetadata) ([]byte, error) {
	if md == nil {
		return nil, nil
	}
	mbid := md.MusicBrainzRelease
	if mbid == "" {
		query := releaseQuery(md)
		if query == "" {
			return nil, nil
		}
		found, err := p.cached(ctx, "release:"+strings.ToLower(query), func() ([]byte, error) {
			return p.searchRelease(ctx, query)
		})
		if err != nil {
			return nil, err
		}
		mbid = string(found)
	}
	if mbid == "" {
		return nil, nil
	}
	return p.cached(ctx, "cover:"+mbid, func() ([]byte, error) {
		return p.fetchCover(ctx, mbid)
	})
}

// cached answers key from the cache or runs fetch once for all concurrent
// callers, caching what it returns. Errors are not cached.
func (p *CoverProvider) cached(ctx context.Context, key string, fetch func() ([]byte, error)) ([]byte, error) {
	if v, ok, err := p.cache.Get(ctx, key); err != nil {
		log.Emit(logger.DEBUG, "Cover cache lookup for %q failed: %v\n", key, err)
	} else if ok {
		metrics.CoverLookupsTotal.WithLabelValues("cached").Inc()
		return v, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		v, err := fetch()
		if err != nil {
			metrics.CoverLookupsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		if v == nil {
			metrics.CoverLookupsTotal.WithLabelValues("miss").Inc()
		} else {
			metrics.CoverLookupsTotal.WithLabelValues("hit").Inc()
		}
		if err := p.cache.Set(ctx, key, v); err != nil {
			log.Emit(logger.DEBUG, "Could not cache %q: %v\n", key, err)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil //nolint:forcetypeassert
}

func (p *CoverProvider) get(ctx context.Context, u string) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")
	return p.client.Do(req)
}

type releaseSearch struct {
	Releases []struct {
		ID    string `json:"id"`
		Score int    `json:"score"`
	} `json:"releases"`
}

func (p *CoverProvider) searchRelease(ctx context.Context, query string) ([]byte, error) {
	u := p.musicBrainzURL + "/release/?" + url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {"1"},
	}.Encode()

	resp, err := p.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("musicbrainz search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz search: %w: %s", errCoverStatus, resp.Status)
	}

	var result releaseSearch
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("musicbrainz search: %w", err)
	}
	if len(result.Releases) == 0 {
		log.Emit(logger.DEBUG, "No MusicBrainz release for %s\n", query)
		return nil, nil
	}
	return []byte(result.Releases[0].ID), nil
}

func (p *CoverProvider) fetchCover(ctx context.Context, mbid string) ([]byte, error) {
	resp, err := p.get(ctx, p.coverArtURL+"/release/"+url.PathEscape(mbid)+"/front-250")
	if err != nil {
		return nil, fmt.Errorf("cover art archive: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.Emit(logger.DEBUG, "Release %s has no cover at the Cover Art Archive\n", mbid)
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("cover art archive %s: %w: %s", mbid, errCoverStatus, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("cover art archive %s: %w", mbid, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// releaseQuery builds a MusicBrainz release search. The album artist is
// preferred, as track artists often differ from the credited release artist.
func releaseQuery(md *types.AudioMetadata) string {
	var terms []string
	switch {
	case strings.TrimSpace(md.Album) != "":
		terms = append(terms, "release:"+phrase(md.Album))
	case md.MusicBrainzTrack != "":
		terms = append(terms, "tid:"+md.MusicBrainzTrack)
	case strings.TrimSpace(md.Title) != "":
		terms = append(terms, "recording:"+phrase(md.Title))
	default:
		return ""
	}

	artist := md.AlbumArtist
	if strings.TrimSpace(artist) == "" {
		artist = md.Artist
	}
	if strings.TrimSpace(artist) != "" {
		terms = append(terms, "artist:"+phrase(artist))
	}
	if md.Year > 0 {
		terms = append(terms, fmt.Sprintf("date:%d*", md.Year))
	}
	return strings.Join(terms, " AND ")
}

func phrase(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(strings.TrimSpace(s)) + `"`
}
