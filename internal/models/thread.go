package models

// Thread identifies a two-party conversation independent of message
// direction. The "other participant" fields are derived from loaded messages,
// never stored on their own.
type Thread struct {
	ID               string
	OtherUserID      string
	OtherUsername    string
	OtherDisplayName string
	OtherAvatar      string
}

// ThreadID derives the deterministic thread identifier for an unordered pair
// of participant ids. Either participant resolves to the same id.
func ThreadID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Pagination mirrors the server's page bookkeeping for a thread history.
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}
