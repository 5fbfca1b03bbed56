package ctl

// UnsupportedQuery occurs when a query isn't E F φ or A G φ (with a
// non-temporal φ).
type UnsupportedQuery struct {
	Query  string
	Reason string
}

func (e *UnsupportedQuery) Error() string {
	msg := "unsupported query `" + e.Query + "`"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// QuerySyntaxError occurs when a query doesn't parse.
type QuerySyntaxError struct {
	Query  string
	Reason string
}

func (e *QuerySyntaxError) Error() string {
	return "bad query `" + e.Query + "`: " + e.Reason
}

// UnknownName occurs when a name in a query is neither a symbol nor a
// location.
type UnknownName struct {
	Name string
}

func (e *UnknownName) Error() string {
	return `"` + e.Name + `" is neither a symbol nor a location`
}
