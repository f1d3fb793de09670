package dupstat

import "testing"

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		groups     []DuplicateGroup
		totalBytes uint64
		want       Stats
	}{
		{
			name: "empty",
			want: Stats{},
		},
		{
			name:       "carries total bytes through",
			totalBytes: 1234,
			want:       Stats{TotalBytesScanned: 1234, FilesScanned: 3},
		},
		{
			name: "n identical files of size s waste s*(n-1)",
			groups: []DuplicateGroup{
				{Members: []string{"a", "b", "c", "d"}, Size: 25},
			},
			totalBytes: 100,
			want: Stats{
				TotalBytesScanned:   100,
				FilesScanned:        3,
				DuplicateGroupCount: 1,
				DuplicateFileCount:  4,
				WastedBytes:         75,
			},
		},
		{
			name: "several groups",
			groups: []DuplicateGroup{
				{Members: []string{"a", "b"}, Size: 100},
				{Members: []string{"c", "d", "e"}, Size: 10},
			},
			totalBytes: 500,
			want: Stats{
				TotalBytesScanned:   500,
				FilesScanned:        3,
				DuplicateGroupCount: 2,
				DuplicateFileCount:  5,
				WastedBytes:         120,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := tt.want.FilesScanned

			got := Aggregate(tt.groups, tt.totalBytes, files)
			if got != tt.want {
				t.Errorf("Aggregate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRedundantFiles(t *testing.T) {
	stats := Aggregate([]DuplicateGroup{
		{Members: []string{"a", "b"}, Size: 1},
		{Members: []string{"c", "d", "e"}, Size: 1},
	}, 0, 0)

	if got := stats.RedundantFiles(); got != 3 {
		t.Errorf("RedundantFiles() = %d, want 3", got)
	}
}

func TestWastedSingleMember(t *testing.T) {
	if got := (DuplicateGroup{Members: []string{"a"}, Size: 10}).Wasted(); got != 0 {
		t.Errorf("Wasted() = %d, want 0", got)
	}
}
