package editing

// DiffOp marks how a run of words changed between two versions
type DiffOp string

const (
	DiffEqual   DiffOp = "equal"
	DiffAdded   DiffOp = "added"
	DiffRemoved DiffOp = "removed"
)

// DiffSegment is a run of consecutive words sharing one marker
type DiffSegment struct {
	Op    DiffOp   `json:"op"`
	Words []string `json:"words"`
}

// DiffResult compares two versions; Before always has the lower number
type DiffResult struct {
	DocumentID   string        `json:"document_id"`
	Before       Stats         `json:"before"`
	After        Stats         `json:"after"`
	WordsAdded   int           `json:"words_added"`
	WordsRemoved int           `json:"words_removed"`
	Segments     []DiffSegment `json:"segments"`
}
