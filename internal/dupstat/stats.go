package dupstat

import "time"

// Stats holds scan-wide totals derived from a finalized index.
type Stats struct {
	// TotalBytesScanned is the cumulative size of every file read successfully.
	TotalBytesScanned uint64 `json:"total_bytes_scanned"`
	// FilesScanned is the number of files read successfully.
	FilesScanned uint64 `json:"files_scanned"`
	// DuplicateGroupCount is the number of duplicate groups.
	DuplicateGroupCount uint `json:"duplicate_group_count"`
	// DuplicateFileCount is the number of files across all groups.
	DuplicateFileCount uint `json:"duplicate_file_count"`
	// WastedBytes is the space held by copies beyond the first in each group.
	WastedBytes uint64 `json:"wasted_bytes"`
	// ErrorCount is the number of recoverable errors encountered.
	ErrorCount uint `json:"error_count"`
	// Elapsed is the total time taken for the scan.
	Elapsed time.Duration `json:"elapsed"`
}

// RedundantFiles returns the number of files that could be removed while
// keeping one copy per group.
func (s Stats) RedundantFiles() uint {
	return s.DuplicateFileCount - s.DuplicateGroupCount
}

// Aggregate derives statistics from finalized groups. totalBytes and files
// are carried through from the index, not recomputed.
func Aggregate(groups []DuplicateGroup, totalBytes, files uint64) Stats {
	stats := Stats{
		TotalBytesScanned: totalBytes,
		FilesScanned:      files,
	}

	for _, g := range groups {
		stats.WastedBytes += g.Wasted()
		stats.DuplicateFileCount += uint(len(g.Members))
		stats.DuplicateGroupCount++
	}

	return stats
}
