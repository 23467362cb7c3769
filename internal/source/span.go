package source

// FileID identifies a source file within a translation unit.
type FileID uint16

// NoFileID marks a location with no known file.
const NoFileID FileID = 0

// Span is a half-open byte range in a source file.
type Span struct {
	File  FileID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

// Known reports whether the span carries a real location.
func (s Span) Known() bool {
	return s.File != NoFileID
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not coverable; s wins.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}
