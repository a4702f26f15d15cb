package types

// Table is a parsed file: the first row as Header, the rest as Rows.
// Rows may be ragged; nothing enforces len(row) == len(Header).
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}

// Range is the (Start, End) window requested over Table.Rows.
type Range struct {
	Start int
	End   int
}

// Reason records why a slice degraded to an empty body.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidStart
	ReasonInvalidEnd
)

func (r Reason) String() string {
	switch r {
	case ReasonInvalidStart:
		return "invalid slice start value"
	case ReasonInvalidEnd:
		return "invalid slice end value"
	}
	return "none"
}

type SliceResult struct {
	Header []string
	Rows   [][]string
	Reason Reason
}

// Degraded reports whether the body was emptied by bound validation.
func (s SliceResult) Degraded() bool {
	return s.Reason != ReasonNone
}
