package tasks

import (
	"reflect"
	"testing"
)

func TestParseVideoLinks(t *testing.T) {
	tc := []struct {
		name  string
		links []string
		want  []string
	}{
		{
			name:  "short and long forms dedupe",
			links: []string{"https://youtu.be/abc", "https://www.youtube.com/watch?v=abc", "not-a-url"},
			want:  []string{"abc"},
		},
		{
			name:  "keeps input order",
			links: []string{"https://youtube.com/watch?v=two", "https://youtu.be/one?t=10", "https://m.youtube.com/watch?v=three&list=x"},
			want:  []string{"two", "one", "three"},
		},
		{
			name:  "trims whitespace",
			links: []string{"  https://youtu.be/abc  ", ""},
			want:  []string{"abc"},
		},
		{
			name:  "drops other hosts and missing ids",
			links: []string{"https://vimeo.com/123", "https://www.youtube.com/channel/UC1", "https://youtu.be/", "youtu.be/abc", "http://[::1"},
			want:  nil,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseVideoLinks(tt.links); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseVideoLinks() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitLinks(t *testing.T) {
	got := SplitLinks("https://youtu.be/a\r\nhttps://youtu.be/b, https://youtu.be/c\n\n")
	want := []string{"https://youtu.be/a", "https://youtu.be/b", "https://youtu.be/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitLinks() = %v, want %v", got, want)
	}
}
