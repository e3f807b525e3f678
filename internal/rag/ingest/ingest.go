package ingest

import (
	"fmt"
	"os"
	"time"

	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

var logger = logger_i.NewLogger("Document Ingestion ")

// ExtractChunks turns an uploaded file into retrievable chunks. Chunk
// timestamps come from the file's modification time when the filesystem has
// it - that is what freshness ranking keys on - falling back to ingest time.
func ExtractChunks(path string, displayName string) ([]commonModels.Chunk, error) {
	docType := getDocType(path)
	logger.Debug("Processing document", "name", displayName, "type", docType)
	if docType == commonModels.ERR {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	createdAt := time.Now()
	if info, err := os.Stat(path); err == nil && !info.ModTime().IsZero() {
		createdAt = info.ModTime()
	}

	if docType == commonModels.CSV {
		return extractCSV(path, displayName, createdAt)
	}

	pages, err := extractText(path, docType)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable content in %s", displayName)
	}

	chunks := prepareChunks(pages, displayName, createdAt)
	logger.Debug("Processing document", "pages", len(pages), "chunks", len(chunks))
	return chunks, nil
}
