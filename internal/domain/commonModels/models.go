package commonModels

import (
	"fmt"
	"time"
)

type DocType string

var (
	PDF  DocType = "PDF"
	DOCX DocType = "DOCX"
	TXT  DocType = "TXT"
	CSV  DocType = "CSV"
	ERR  DocType = "ERROR"
)

// ChunkKind tags what produced a chunk so consumers don't guess from the text.
// Atomic kinds (tables, OCR output) are never split by the chunker.
type ChunkKind string

const (
	ChunkText  ChunkKind = "text"
	ChunkTable ChunkKind = "table"
	ChunkImage ChunkKind = "image"
)

func (k ChunkKind) Atomic() bool {
	return k == ChunkTable || k == ChunkImage
}

// Chunk is the smallest retrievable unit. Immutable once created.
type Chunk struct {
	Text      string    `json:"text"`
	Page      int       `json:"page"`
	Source    string    `json:"source"` //document display name
	Kind      ChunkKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"` //document modification time if known, else ingestion time
}

// BlockMeta describes one row of the global block index. The slice of these
// is parallel to the index: BlockMeta at position i describes vector i.
type BlockMeta struct {
	BlockId    string    `json:"block_id"` //"{doc_id}_block_{n}"
	DocId      string    `json:"doc_id"`
	Name       string    `json:"name"`
	PageRange  string    `json:"page_range"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func BlockId(docId string, blockIdx int) string {
	return fmt.Sprintf("%s_block_%d", docId, blockIdx)
}

// Candidate is one retrieval pipeline result, pre-citation.
type Candidate struct {
	Text         string    `json:"text"`
	Page         int       `json:"page"`
	Score        float32   `json:"score"` //squared L2 distance, lower is better
	DocumentName string    `json:"document_name"`
	CreatedAt    time.Time `json:"created_at"`
	KeywordMatch bool      `json:"keyword_match"` //forced in by lexical overlap, bypasses the margin filter
}

// Citation is what the answer layer exposes per candidate.
type Citation struct {
	DocumentName string  `json:"document_name"`
	PageNumber   int     `json:"page_number"`
	TextSnippet  string  `json:"text_snippet"`
	Score        float32 `json:"score"`
	UploadDate   string  `json:"upload_date"`
}

// Triple is one extracted (head, relation, tail) fact from a block.
type Triple struct {
	Head     string `json:"head"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
}

// DocumentInfo summarizes a unique document grouped from block metadata.
type DocumentInfo struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Blocks    int       `json:"blocks"`
	CreatedAt time.Time `json:"created_at"`
}
