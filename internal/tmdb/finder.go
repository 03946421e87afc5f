package tmdb

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"streampresence/internal/titleparse"
	"streampresence/pkg/media"
)

var (
	nonWord          = regexp.MustCompile(`[^\w\s']`)
	standaloneNumber = regexp.MustCompile(`\s\d+\s`)
	spaces           = regexp.MustCompile(`\s+`)
)

// Finder resolves a poster path for detected content. Lookups, including
// misses, are cached.
type Finder struct {
	api   Searcher
	cache *cache.Cache
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewFinder returns a finder caching results for ttl.
func NewFinder(api Searcher, log logrus.FieldLogger, ttl time.Duration) *Finder {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Finder{
		api:   api,
		cache: cache.New(ttl, 2*ttl),
		log:   log,
		now:   time.Now,
	}
}

// SearchImage returns the poster path for title, or "" when nothing
// matched. season is ignored unless typ is a show and season > 0. An error
// is returned only when no request reached TMDB.
func (f *Finder) SearchImage(ctx context.Context, title string, typ media.Type, season int) (string, error) {
	title = titleparse.TrimSeparators(title)
	if title == "" {
		return "", nil
	}
	key := fmt.Sprintf("%s|%s|%d", strings.ToLower(title), typ, season)
	if v, ok := f.cache.Get(key); ok {
		return v.(string), nil
	}

	s := &search{finder: f, ctx: ctx}
	poster := s.find(title, typ, season)
	if poster == "" && s.failed > 0 && s.succeeded == 0 {
		return "", fmt.Errorf("artwork lookup for %q failed: %w", title, s.lastErr)
	}

	f.cache.Set(key, poster, cache.DefaultExpiration)
	if poster == "" {
		f.log.WithField("title", titleparse.SanitizeForLog(title)).Warn("No image found on TMDB")
	}
	return poster, nil
}

// search tracks request outcomes for one lookup.
type search struct {
	finder    *Finder
	ctx       context.Context
	succeeded int
	failed    int
	lastErr   error
}

func (s *search) record(err error) bool {
	if err != nil {
		s.failed++
		s.lastErr = err
		s.finder.log.WithError(err).Debug("TMDB request error")
		return false
	}
	s.succeeded++
	return true
}

func (s *search) find(title string, typ media.Type, season int) string {
	if typ == media.TypeShow && season > 0 {
		if p := s.seasonPoster(title, season); p != "" {
			return p
		}
	}

	simplified := Simplify(title)
	queries := []string{title}
	if simplified != title && simplified != "" {
		queries = append(queries, simplified)
	}

	kinds := []Kind{KindMovie, KindTV}
	if typ == media.TypeShow {
		kinds = []Kind{KindTV, KindMovie}
	}

	for _, q := range queries {
		for _, kind := range kinds {
			if s.ctx.Err() != nil {
				return ""
			}
			resp, err := s.finder.api.Search(s.ctx, kind, q)
			if !s.record(err) {
				continue
			}
			if best, ok := s.finder.best(q, resp.Results); ok {
				s.finder.log.WithFields(logrus.Fields{
					"query": titleparse.SanitizeForLog(q), "match": titleparse.SanitizeForLog(best.DisplayTitle()),
				}).Info("Selected poster")
				return best.PosterPath
			}
		}
	}

	if words := strings.Fields(simplified); len(words) > 2 {
		return s.find(strings.Join(words[:2], " "), typ, season)
	}
	return ""
}

// seasonPoster returns the season poster of the best show match, falling
// back to the show poster.
func (s *search) seasonPoster(title string, season int) string {
	resp, err := s.finder.api.Search(s.ctx, KindTV, title)
	if !s.record(err) || len(resp.Results) == 0 {
		return ""
	}
	show := resp.Results[0]

	details, err := s.finder.api.GetSeason(s.ctx, show.ID, season)
	if !s.record(err) {
		return ""
	}
	if details.PosterPath != "" {
		return details.PosterPath
	}
	return show.PosterPath
}

type scored struct {
	score  float64
	result Result
}

// best ranks results with a poster by title match, popularity and recency.
func (f *Finder) best(query string, results []Result) (Result, bool) {
	var ranked []scored
	for _, r := range results {
		if r.PosterPath == "" {
			continue
		}
		ranked = append(ranked, scored{score: f.Score(query, r), result: r})
	}
	if len(ranked) == 0 {
		return Result{}, false
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	return ranked[0].result, true
}

// Score rates how well r matches query.
func (f *Finder) Score(query string, r Result) float64 {
	q := strings.ToLower(query)
	t := strings.ToLower(r.DisplayTitle())

	var score float64
	switch {
	case t == q:
		score += 100
	case strings.Contains(t, q):
		score += 50
	case strings.Contains(q, t):
		score += 40
	}
	score += similarity(q, t) * 10
	score += r.Popularity / 10

	if d := r.Date(); len(d) >= 4 {
		if year, err := strconv.Atoi(d[:4]); err == nil {
			current := f.now().Year()
			if current > 2000 {
				bonus := float64(year-2000) / float64(current-2000) * 20
				if bonus < 0 {
					bonus = 0
				}
				if bonus > 20 {
					bonus = 20
				}
				score += bonus
			}
		}
	}
	return score
}

func similarity(a, b string) float64 {
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Simplify drops punctuation except apostrophes and standalone numbers.
func Simplify(title string) string {
	s := nonWord.ReplaceAllString(title, " ")
	s = standaloneNumber.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
