package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akolanti/OfflineRAG/internal/adapter"
	"github.com/akolanti/OfflineRAG/internal/adapter/utils"
	"github.com/akolanti/OfflineRAG/internal/api"
	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/rag"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

// Handlers below talk to the engine synchronously. The async job path covers
// chat and ingestion; index management and streaming have no reason to queue.

var (
	engineInstance *rag.Engine
	logEH          *logger_i.Logger
)

func InitEngineHandlers(engine *rag.Engine) {
	engineInstance = engine
	logEH = logger_i.NewLogger("EngineHandler")
}

// StreamChatHandler godoc
// @Summary      Ask a question with a streamed answer
// @Description  Runs retrieval and streams the generated answer over SSE. A citations event precedes the first token; a refusal carries no citations.
// @Tags         Messaging
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body  api.ChatRequest  true  "Question"
// @Success      200  {string}  string  "SSE stream"
// @Failure      400  {object}  api.JobResponse  "Invalid request"
// @Failure      503  {object}  api.JobResponse  "Engine not ready"
// @Router       /chat/stream [post]
func StreamChatHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logEH.Error("Couldn't close the stream handler reader :", "error", err)
		}
	}(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.Message == "" {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emitter := &sseEmitter{
		w:       w,
		flusher: flusher,
		rc:      http.NewResponseController(w),
	}

	err := engineInstance.GenerateAnswerStream(r.Context(), requestData.Message, emitter)
	if err != nil {
		if errors.Is(err, rag.ErrEngineNotReady) && !emitter.started {
			WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Engine not ready")
			return
		}
		// stream already underway, all we can do is signal and stop
		logEH.Error("Stream failed mid-answer", "error", err)
		emitter.emitEvent("error", map[string]string{"message": "stream aborted"})
		return
	}
	emitter.emitEvent("done", map[string]string{})
}

// sseEmitter writes the citations event and token events, extending the write
// deadline per write - an answer legitimately outlives the server's normal
// write timeout.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	started bool
}

func (e *sseEmitter) EmitCitations(citations []commonModels.Citation) error {
	return e.emitEvent("citations", adapter.ToAPICitations(citations))
}

func (e *sseEmitter) EmitToken(token string) error {
	return e.emitEvent("token", map[string]string{"token": token})
}

func (e *sseEmitter) emitEvent(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := e.rc.SetWriteDeadline(time.Now().Add(config.StreamWriteTimeout)); err != nil {
		logEH.Debug("Could not extend write deadline", "error", err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, raw); err != nil {
		return err
	}
	e.started = true
	e.flusher.Flush()
	return nil
}

// ListDocumentsHandler godoc
// @Summary      List indexed documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentListResponse
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(engineInstance.ListDocuments()))
}

// DeleteDocumentHandler godoc
// @Summary      Remove a document from the index
// @Description  Deletes all blocks of the document, rebuilds the block index, and cascades into the knowledge graph.
// @Tags         Documents
// @Produce      json
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  api.JobResponse  "Document not found"
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	docId := utils.GetChiURLParam(r, "id")
	if docId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document id is required")
		return
	}

	err := engineInstance.DeleteDocument(r.Context(), docId)
	switch {
	case errors.Is(err, rag.ErrDocumentNotFound):
		WriteErrorResponse(w, http.StatusNotFound, docId, "Document not found")
	case errors.Is(err, rag.ErrEngineNotReady):
		WriteErrorResponse(w, http.StatusServiceUnavailable, docId, "Engine not ready")
	case err != nil:
		logEH.Error("Delete failed", "docId", docId, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docId, "Delete failed")
	default:
		writeJsonResponse(w, http.StatusOK, map[string]string{"id": docId, "status": "deleted"})
	}
}

// ClearDocumentsHandler godoc
// @Summary      Wipe the whole index
// @Description  Removes every document, the block index, and the knowledge graph. Idempotent.
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /documents [delete]
func ClearDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	if err := engineInstance.Clear(r.Context()); err != nil {
		logEH.Error("Clear failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Clear failed")
		return
	}
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// HealthHandler godoc
// @Summary      Engine health and index counters
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.EngineStatusResponse
// @Failure      503  {object}  api.EngineStatusResponse  "Engine not ready"
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	status := engineInstance.Status()
	response := api.EngineStatusResponse{
		Ready:      status.Ready,
		Blocks:     status.Blocks,
		Documents:  status.Documents,
		GraphNodes: status.GraphNodes,
		GraphEdges: status.GraphEdges,
		GraphQueue: status.GraphQueue,
		UpdatedAt:  status.UpdatedAt,
	}
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJsonResponse(w, code, response)
}

// IngestStatusHandler godoc
// @Summary      Per-document ingestion progress
// @Tags         Ingestion
// @Produce      json
// @Success      200  {object}  api.IngestStatusResponse
// @Router       /ingest/status [get]
func IngestStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	response := api.IngestStatusResponse{Documents: make(map[string]api.IngestDocumentStatus)}
	for name, entry := range engineInstance.ProcessingStatus() {
		response.Documents[name] = api.IngestDocumentStatus{Status: entry.Status, UpdatedAt: entry.UpdatedAt}
	}
	writeJsonResponse(w, http.StatusOK, response)
}
