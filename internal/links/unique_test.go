package links

import (
	"testing"

	"github.com/linkaudit/linkaudit/internal/model"
)

// TestUniquePages tests page deduplication.
func TestUniquePages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		pages []string
		want  []string
	}{
		{
			name:  "duplicates removed in first-seen order",
			pages: []string{"a", "b", "a", "c", "b"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "no duplicates",
			pages: []string{"a", "b", "c"},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "all identical",
			pages: []string{"a", "a", "a"},
			want:  []string{"a"},
		},
		{
			name:  "empty input",
			pages: []string{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := UniquePages(tt.pages)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d pages, got %d: %v", len(tt.want), len(got), got)
			}
			for i, want := range tt.want {
				if got[i] != want {
					t.Errorf("page[%d] = %q, want %q", i, got[i], want)
				}
			}
		})
	}
}

// TestUniqueHrefs tests href deduplication across link records.
func TestUniqueHrefs(t *testing.T) {
	t.Parallel()

	records := []model.LinkRecord{
		{SourcePage: "p1", Href: "a"},
		{SourcePage: "p2", Href: "b"},
		{SourcePage: "p3", Href: "a"},
	}

	got := UniqueHrefs(records)
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d hrefs, got %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("href[%d] = %q, want %q", i, got[i], w)
		}
	}
}

// TestUniqueHrefs_Empty tests deduplication of no records.
func TestUniqueHrefs_Empty(t *testing.T) {
	t.Parallel()

	got := UniqueHrefs(nil)
	if len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}
