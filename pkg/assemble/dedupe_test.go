package assemble

import (
	"testing"

	"github.com/fedsearch/fedsearch/pkg/core"
)

func TestDropLocalDuplicates(t *testing.T) {
	tests := []struct {
		name     string
		local    []core.ResultRecord
		external []core.ResultRecord
		want     int
	}{
		{
			name:     "identical urls",
			local:    []core.ResultRecord{{Title: "A", URL: "https://usa.gov/a"}},
			external: []core.ResultRecord{{Title: "Other", URL: "https://usa.gov/a"}},
			want:     0,
		},
		{
			name:     "trailing slash normalized",
			local:    []core.ResultRecord{{Title: "A", URL: "https://usa.gov/a/"}},
			external: []core.ResultRecord{{Title: "Other", URL: "https://usa.gov/a"}},
			want:     0,
		},
		{
			name:     "same path and highlighted title",
			local:    []core.ResultRecord{{Title: "Tax Forms", URL: "https://mirror.usa.gov/forms"}},
			external: []core.ResultRecord{{Title: "Tax Forms", URL: "https://usa.gov/forms"}},
			want:     0,
		},
		{
			name:     "same path different title survives",
			local:    []core.ResultRecord{{Title: "Completely different", URL: "https://mirror.usa.gov/forms"}},
			external: []core.ResultRecord{{Title: "Tax Forms", URL: "https://usa.gov/forms"}},
			want:     1,
		},
		{
			name:     "same path and query with matching title",
			local:    []core.ResultRecord{{Title: "Tax Forms", URL: "https://mirror.usa.gov/forms?year=2025"}},
			external: []core.ResultRecord{{Title: "Tax Forms", URL: "https://usa.gov/forms?year=2025"}},
			want:     0,
		},
		{
			name:     "same path different query survives",
			local:    []core.ResultRecord{{Title: "Tax Forms", URL: "https://mirror.usa.gov/forms?year=2024"}},
			external: []core.ResultRecord{{Title: "Tax Forms", URL: "https://usa.gov/forms?year=2025"}},
			want:     1,
		},
		{
			name:     "different results survive",
			local:    []core.ResultRecord{{Title: "A", URL: "https://usa.gov/a"}},
			external: []core.ResultRecord{{Title: "B", URL: "https://usa.gov/b"}},
			want:     1,
		},
		{
			name:     "empty external keeps local",
			local:    []core.ResultRecord{{Title: "A", URL: "https://usa.gov/a"}},
			external: nil,
			want:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DropLocalDuplicates(tt.local, tt.external)
			if len(got) != tt.want {
				t.Errorf("expected %d kept, got %d: %v", tt.want, len(got), got)
			}
		})
	}
}
