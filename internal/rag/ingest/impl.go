package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
)

//splitter

func splitTextIntoChunks(text string, limit int, overlap int) []string {
	var chunks []string

	// If text is already small enough, just return it
	if len(text) <= limit {
		return []string{text}
	}

	// Separators ordered from "best" to "worst" for semantic meaning
	separators := []string{"\n\n", "\n", ". ", " ", ""}

	var splitChar string
	found := false
	for _, s := range separators {
		if strings.Contains(text, s) {
			splitChar = s
			found = true
			break
		}
	}

	if !found {
		// Hard cut if no separator found (rare)
		return []string{text[:limit]}
	}

	parts := strings.Split(text, splitChar)
	var currentChunk strings.Builder

	for _, part := range parts {
		// If adding the part exceeds the limit
		if currentChunk.Len()+len(part)+len(splitChar) > limit {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, currentChunk.String())
			}

			// Handle overlap: start the next chunk with the end of the previous one
			// (Simple version: take last N chars)
			overlapContent := ""
			if currentChunk.Len() > overlap {
				overlapContent = currentChunk.String()[currentChunk.Len()-overlap:]
			}

			currentChunk.Reset()
			currentChunk.WriteString(overlapContent)
		}

		if currentChunk.Len() > 0 && splitChar != "" {
			currentChunk.WriteString(splitChar)
		}
		currentChunk.WriteString(part)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String())
	}

	return chunks
}

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	case ".txt":
		return commonModels.TXT
	case ".csv":
		return commonModels.CSV
	default:
		return commonModels.ERR
	}
}

func extractText(path string, contentType commonModels.DocType) ([]rawPage, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX, commonModels.TXT:
		return extractdocxTxtRtf(path)

	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func prepareChunks(pages []rawPage, source string, createdAt time.Time) []commonModels.Chunk {
	var allChunks []commonModels.Chunk

	// Limits for the splitter
	const maxChunkSize = 1000 // characters
	const overlap = 150       // generous overlap helps semantic continuity

	for _, page := range pages {
		stringChunks := splitTextIntoChunks(page.Content, maxChunkSize, overlap)

		for _, text := range stringChunks {
			if strings.TrimSpace(text) == "" {
				continue
			}
			allChunks = append(allChunks, commonModels.Chunk{
				Text:      text,
				Page:      page.Number,
				Source:    source,
				Kind:      commonModels.ChunkText,
				CreatedAt: createdAt,
			})
		}
	}

	return allChunks
}

// rowsPerTableChunk keeps a table chunk roughly the size of a text chunk
// without ever splitting a row.
const rowsPerTableChunk = 25

// extractCSV renders row groups as atomic table chunks. Tables lose their
// meaning when the splitter cuts through a row, so the splitter never sees
// them.
func extractCSV(path string, source string, createdAt time.Time) ([]commonModels.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 //ragged rows happen in real exports
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv: %s", source)
	}

	header := strings.Join(records[0], " | ")
	rows := records[1:]

	var chunks []commonModels.Chunk
	for start := 0; start < len(rows) || len(chunks) == 0; start += rowsPerTableChunk {
		end := start + rowsPerTableChunk
		if end > len(rows) {
			end = len(rows)
		}

		var b strings.Builder
		b.WriteString(header)
		for _, row := range rows[start:end] {
			b.WriteString("\n")
			b.WriteString(strings.Join(row, " | "))
		}

		chunks = append(chunks, commonModels.Chunk{
			Text:      b.String(),
			Page:      len(chunks) + 1,
			Source:    source,
			Kind:      commonModels.ChunkTable,
			CreatedAt: createdAt,
		})
		if end == len(rows) {
			break
		}
	}
	return chunks, nil
}
