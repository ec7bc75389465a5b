package ai

// Asymmetric prefixes required by the e5 embedding model family.
// Passages and queries are embedded into the same space but with different
// prefixes; using the wrong one degrades similarity scores without any
// structural error.
const (
	// PassagePrefix is prepended to document text before embedding.
	PassagePrefix = "passage: "

	// QueryPrefix is prepended to search queries before embedding.
	QueryPrefix = "query: "
)
