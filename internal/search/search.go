package search

// Record is the data indexed for a document.
type Record struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	BinderID    string   `json:"binderId"`
	MimeType    string   `json:"mimeType"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	BinderID    string   `json:"binderId"`
	MimeType    string   `json:"mimeType"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Query   string   `json:"query"`
}
