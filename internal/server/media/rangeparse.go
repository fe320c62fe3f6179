package media

import (
	"fmt"
	"regexp"
	"strconv"
)

// RangeKind tags the outcome of ParseRange.
type RangeKind int

const (
	// NoRange means the request carried no Range header.
	NoRange RangeKind = iota
	// Satisfiable means Start and End describe a valid inclusive slice.
	Satisfiable
	// Invalid means the header was malformed or cannot be served.
	Invalid
)

func (k RangeKind) String() string {
	switch k {
	case NoRange:
		return "none"
	case Satisfiable:
		return "satisfiable"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("RangeKind(%d)", int(k))
}

// Range is the parsed form of a Range header. Start and End are only
// meaningful when Kind is Satisfiable.
type Range struct {
	Kind       RangeKind
	Start, End int64
}

// Length is the number of bytes in a satisfiable range.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range value for a satisfiable range.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Only one contiguous range is supported; a comma separated list fails the
// match and is reported as Invalid.
var rangePattern = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// ParseRange interprets header against an object of size bytes.
//
// An omitted start defaults to 0 and an omitted end to size-1, so a
// suffix form such as "bytes=-500" selects bytes 0 through 500 rather than
// the last 500 bytes.
func ParseRange(header string, size int64) Range {
	if header == "" {
		return Range{Kind: NoRange}
	}
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return Range{Kind: Invalid}
	}

	var start, end int64
	if m[1] != "" {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Range{Kind: Invalid}
		}
		start = v
	}
	if m[2] != "" {
		v, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Range{Kind: Invalid}
		}
		end = v
	} else {
		end = size - 1
	}

	if start > end || end >= size {
		return Range{Kind: Invalid}
	}
	return Range{Kind: Satisfiable, Start: start, End: end}
}
