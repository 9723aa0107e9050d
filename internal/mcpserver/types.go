package mcpserver

// QueryInput defines inputs for the raglab_query MCP tool.
type QueryInput struct {
	Query       string `json:"query" jsonschema:"search query (natural language or keywords)"`
	Bank        string `json:"bank,omitempty" jsonschema:"knowledge bank name (optional)"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"number of results to return"`
	VectorOnly  bool   `json:"vector_only,omitempty" jsonschema:"use vector search only"`
	KeywordOnly bool   `json:"keyword_only,omitempty" jsonschema:"use keyword search only"`
	NoRerank    bool   `json:"no_rerank,omitempty" jsonschema:"disable reranking of the candidate pool"`
}

// QueryScores includes per-signal scores for a result.
type QueryScores struct {
	Vector   float64 `json:"vector"`
	Keyword  float64 `json:"keyword"`
	Rerank   float64 `json:"rerank,omitempty"`
	Combined float64 `json:"combined"`
}

// QueryResultItem is a compact representation of a retrieved chunk.
type QueryResultItem struct {
	ID     string      `json:"id"`
	Source string      `json:"source"`
	Title  string      `json:"title,omitempty"`
	Seq    int         `json:"seq"`
	Text   string      `json:"text"`
	Scores QueryScores `json:"scores"`
}

// QueryOutput is the output for raglab_query.
type QueryOutput struct {
	Query   string            `json:"query"`
	Bank    string            `json:"bank"`
	Count   int               `json:"count"`
	Results []QueryResultItem `json:"results"`
}

// AskInput defines inputs for the raglab_ask MCP tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"question to answer from the bank"`
	Bank     string `json:"bank,omitempty" jsonschema:"knowledge bank name (optional)"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of context chunks to use"`
}

// AskSource is one cited context chunk.
type AskSource struct {
	Source string  `json:"source"`
	Title  string  `json:"title,omitempty"`
	Score  float64 `json:"score"`
}

// AskOutput is the output for raglab_ask.
type AskOutput struct {
	Question string      `json:"question"`
	Bank     string      `json:"bank"`
	Answer   string      `json:"answer"`
	Sources  []AskSource `json:"sources"`
}

// StatusInput defines inputs for the raglab_status MCP tool.
type StatusInput struct {
	Bank string `json:"bank,omitempty" jsonschema:"knowledge bank name (optional; empty lists all banks)"`
}

// BankStatus summarizes one bank.
type BankStatus struct {
	Name       string `json:"name"`
	Exists     bool   `json:"exists"`
	Chunks     int    `json:"chunks"`
	Sources    int    `json:"sources"`
	Dimensions int    `json:"dimensions"`
	Model      string `json:"model,omitempty"`
}

// StatusOutput is the output for raglab_status.
type StatusOutput struct {
	Banks []BankStatus `json:"banks"`
}
