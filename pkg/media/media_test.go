package media

import "testing"

func TestSameContent(t *testing.T) {
	base := Record{Watching: true, Service: Netflix, Title: "Show A", Type: TypeShow, Episode: &Episode{Season: 1, Number: 1}}

	tests := []struct {
		name  string
		other Record
		want  bool
	}{
		{"identical", Record{Watching: true, Service: Netflix, Title: "Show A", Type: TypeShow, Episode: &Episode{Season: 1, Number: 1}}, true},
		{"different episode", Record{Watching: true, Service: Netflix, Title: "Show A", Type: TypeShow, Episode: &Episode{Season: 1, Number: 2}}, false},
		{"different season", Record{Watching: true, Service: Netflix, Title: "Show A", Type: TypeShow, Episode: &Episode{Season: 2, Number: 1}}, false},
		{"different service", Record{Watching: true, Service: DisneyPlus, Title: "Show A", Type: TypeShow, Episode: &Episode{Season: 1, Number: 1}}, false},
		{"different title", Record{Watching: true, Service: Netflix, Title: "Show B", Type: TypeShow, Episode: &Episode{Season: 1, Number: 1}}, false},
		{"episode missing", Record{Watching: true, Service: Netflix, Title: "Show A", Type: TypeShow}, false},
		{"provenance ignored", Record{Watching: true, Service: Netflix, Title: "Show A", Type: TypeShow, Episode: &Episode{Season: 1, Number: 1, Title: "Pilot"}, DetectedBy: SourceBrowserTab}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SameContent(tt.other); got != tt.want {
				t.Errorf("SameContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripped(t *testing.T) {
	r := Record{Watching: true, Service: Netflix, Title: "Movie", Handle: 99, Episode: &Episode{Season: 1, Number: 2}}
	s := r.Stripped()
	if s.Handle != 0 {
		t.Errorf("Handle = %d, want 0", s.Handle)
	}
	s.Episode.Number = 5
	if r.Episode.Number != 2 {
		t.Error("Stripped() shares the episode with the original record")
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name    string
		service Service
		typ     Type
		ep      *Episode
		want    string
	}{
		{"episode with title", Netflix, TypeShow, &Episode{Season: 1, Number: 1, Title: "Chapter One"}, "S1:E1 - Chapter One"},
		{"episode without title", DisneyPlus, TypeShow, &Episode{Season: 2, Number: 7}, "S2:E7"},
		{"movie", Netflix, TypeMovie, nil, "Watching on Netflix"},
		{"unknown", DisneyPlus, TypeUnknown, nil, "Watching on Disney+"},
		{"show without numbers", Netflix, TypeShow, nil, "Watching on Netflix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusLine(tt.service, tt.typ, tt.ep); got != tt.want {
				t.Errorf("StatusLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServiceAssets(t *testing.T) {
	if Netflix.ImageKey() != "netflix" || DisneyPlus.ImageKey() != "disney" {
		t.Errorf("unexpected image keys: %q %q", Netflix.ImageKey(), DisneyPlus.ImageKey())
	}
	if DisneyPlus.Placeholder() != "Disney+ Content" {
		t.Errorf("Placeholder() = %q", DisneyPlus.Placeholder())
	}
	if Netflix.SiteURL() != "https://www.netflix.com" {
		t.Errorf("SiteURL() = %q", Netflix.SiteURL())
	}
}
