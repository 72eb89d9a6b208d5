package metrics

import (
	"sort"
	"strconv"
)

// StatusCount is the number of samples observed for one status code.
type StatusCount struct {
	Code  int
	Count int64
}

// Label returns the code as displayed in reports; transport errors have no HTTP status.
func (s StatusCount) Label() string {
	if s.Code == StatusTransportError {
		return "ERR"
	}
	return strconv.Itoa(s.Code)
}

// FlattenStatusCodes converts a status->count map into rows sorted by descending
// count, then ascending code for stability.
func FlattenStatusCodes(codes map[int]int64) []StatusCount {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusCount, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusCount{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
