package figma

import (
	"testing"
)

func TestExtractFileKey(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "file URL", url: "https://www.figma.com/file/mgKaQN0rrDKx9FrfbtNJE0/All-Icons", want: "mgKaQN0rrDKx9FrfbtNJE0"},
		{name: "design URL", url: "https://www.figma.com/design/mgKaQN0rrDKx9FrfbtNJE0/All-Icons", want: "mgKaQN0rrDKx9FrfbtNJE0"},
		{name: "design URL with node-id", url: "https://www.figma.com/design/mgKaQN0rrDKx9FrfbtNJE0/All-Icons?node-id=489-220448", want: "mgKaQN0rrDKx9FrfbtNJE0"},
		{name: "no www", url: "https://figma.com/file/ABC123/Icons", want: "ABC123"},
		{name: "plain http", url: "http://www.figma.com/file/ABC123/Icons", want: "ABC123"},
		{name: "trailing slash", url: "https://www.figma.com/file/ABC123/", want: "ABC123"},
		{name: "key then query", url: "https://www.figma.com/file/ABC123?node-id=1-2", want: "ABC123"},
		{name: "missing key", url: "https://www.figma.com/file/", wantErr: true},
		{name: "wrong domain", url: "https://www.example.com/file/ABC123", wantErr: true},
		{name: "wrong path", url: "https://www.figma.com/dashboard/ABC123", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractFileKey(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExtractFileKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ExtractFileKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveFileKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare key", input: "mgKaQN0rrDKx9FrfbtNJE0", want: "mgKaQN0rrDKx9FrfbtNJE0"},
		{name: "bare key with surrounding spaces", input: "  ABC123 ", want: "ABC123"},
		{name: "design URL", input: "https://www.figma.com/design/ABC123/Icons?node-id=1-2", want: "ABC123"},
		{name: "key with illegal characters", input: "ABC-123", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveFileKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResolveFileKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ResolveFileKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractNodeIDs(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{name: "query with colon", url: "https://www.figma.com/file/ABC/Icons?node-id=1:2", want: []string{"1:2"}},
		{name: "query with dash", url: "https://www.figma.com/design/ABC/Icons?node-id=489-220448", want: []string{"489:220448"}},
		{name: "query followed by other params", url: "https://www.figma.com/design/ABC/Icons?node-id=489-220448&t=x-1", want: []string{"489:220448"}},
		{name: "query not first", url: "https://www.figma.com/design/ABC/Icons?p=f&node-id=838-2908", want: []string{"838:2908"}},
		{name: "escaped query", url: "https://www.figma.com/design/ABC/Icons?node-id=1%3A2%2C3%3A4", want: []string{"1:2", "3:4"}},
		{name: "several with spaces", url: "https://www.figma.com/file/ABC/Icons?node-id=1:2, 3-4", want: []string{"1:2", "3:4"}},
		{name: "duplicates collapse", url: "https://www.figma.com/file/ABC/Icons?node-id=1:2,1-2,3:4", want: []string{"1:2", "3:4"}},
		{name: "fragment", url: "https://www.figma.com/file/ABC/Icons#1:2,3:4", want: []string{"1:2", "3:4"}},
		{name: "nodes path", url: "https://www.figma.com/file/ABC/Icons/nodes/1:2", want: []string{"1:2"}},
		{name: "empty parameter", url: "https://www.figma.com/file/ABC/Icons?node-id=", want: []string{}},
		{name: "none", url: "https://www.figma.com/file/ABC/Icons", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractNodeIDs(tt.url)
			if err != nil {
				t.Fatalf("ExtractNodeIDs() unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractNodeIDs() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExtractNodeIDs() at index %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDeduplicateNodeIDs(t *testing.T) {
	got := deduplicateNodeIDs([]string{"3:4", "1:2", "3:4", "5:6", "1:2"})
	want := []string{"3:4", "1:2", "5:6"}

	if len(got) != len(want) {
		t.Fatalf("deduplicateNodeIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("deduplicateNodeIDs() at index %d = %v, want %v", i, got[i], want[i])
		}
	}
}
