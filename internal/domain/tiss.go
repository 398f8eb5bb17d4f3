package domain

import "net/url"

// TISSCall is a downstream call to the TISS billing microservice, built
// deterministically from the inbound request and discarded after the
// response.
type TISSCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// TISSResult is the verbatim downstream response. Proxy routes relay
// StatusCode and Body unchanged to the caller.
type TISSResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// TISSStats combines the guia and lote aggregates fetched concurrently.
// Either branch failing fails the whole aggregation; there is no
// half-populated success.
type TISSStats struct {
	Guias map[string]any `json:"guias"`
	Lotes map[string]any `json:"lotes"`
}
