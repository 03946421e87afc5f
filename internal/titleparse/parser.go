// Package titleparse turns streaming window titles into media records.
package titleparse

import (
	"regexp"
	"strconv"
	"strings"

	"streampresence/pkg/media"
)

// grammar is one episodic title layout. Capture groups are, in order: name,
// season, episode and an optional episode title.
type grammar struct {
	name    string
	service media.Service
	pattern *regexp.Regexp
}

// grammars are tried in order; a service only uses its own layout. Titles
// without a known service are tried against every layout.
var grammars = []grammar{
	{
		name:    "colon",
		service: media.Netflix,
		pattern: regexp.MustCompile(`^(.*?):\s+S(\d+):E(\d+)(?:\s+(.+))?`),
	},
	{
		name:    "dash",
		service: media.DisneyPlus,
		pattern: regexp.MustCompile(`^(.*?)\s+-\s+S(\d+)E(\d+)(?:\s+-\s+(.+))?`),
	},
}

// Parse converts a raw window title into a record for the given service.
// It never fails: titles without an episodic layout become movies.
// The returned record has Watching set and no provenance.
func Parse(rawTitle string, service media.Service) media.Record {
	cleaned := Clean(rawTitle, service)

	for _, g := range orderedGrammars(service) {
		m := g.pattern.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		season, errS := strconv.Atoi(m[2])
		number, errE := strconv.Atoi(m[3])
		name := TrimSeparators(m[1])
		if errS != nil || errE != nil || name == "" {
			continue
		}
		return media.Record{
			Watching: true,
			Service:  service,
			Title:    name,
			Type:     media.TypeShow,
			Episode: &media.Episode{
				Season: season,
				Number: number,
				Title:  cleanEpisodeTitle(m[4], service),
			},
		}
	}

	return media.Record{
		Watching: true,
		Service:  service,
		Title:    cleaned,
		Type:     media.TypeMovie,
	}
}

func orderedGrammars(service media.Service) []grammar {
	if service == media.ServiceNone {
		return grammars
	}
	var own []grammar
	for _, g := range grammars {
		if g.service == service {
			own = append(own, g)
		}
	}
	return own
}

func cleanEpisodeTitle(title string, service media.Service) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	return TrimSeparators(RemoveOn(StripBranding(title, service)))
}

// IsBare reports whether a parsed title carries no information beyond the
// service name itself.
func IsBare(title string, service media.Service) bool {
	t := strings.ToLower(TrimSeparators(title))
	if t == "" {
		return true
	}
	s := strings.ToLower(string(service))
	return t == s || t == "home" || t == s+" | "+s || t == "home - "+s
}
