package models

// SearchResult is one symbol directory match.
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	CIK    string `json:"cik"`
}

// AutocompleteResult is the getAutocomplete envelope.
type AutocompleteResult struct {
	Success bool
	Message *string
	Results []SearchResult
}
