package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id" example:"chat_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
}

type Citation struct {
	DocumentName string  `json:"document_name" example:"handbook.pdf"`
	PageNumber   int     `json:"page_number" example:"12"`
	TextSnippet  string  `json:"text_snippet"`
	Score        float32 `json:"score" example:"0.42"`
	UploadDate   string  `json:"upload_date" example:"2026-08-30"`
}

type Result struct {
	Status              string       `json:"status"`
	RAGExternalResponse *RAGResponse `json:"rag_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type DocumentResponse struct {
	Id        string    `json:"id"`
	Name      string    `json:"name" example:"handbook.pdf"`
	Blocks    int       `json:"blocks" example:"3"`
	CreatedAt time.Time `json:"created_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

type EngineStatusResponse struct {
	Ready      bool      `json:"ready"`
	Blocks     int       `json:"blocks"`
	Documents  int       `json:"documents"`
	GraphNodes int       `json:"graph_nodes"`
	GraphEdges int       `json:"graph_edges"`
	GraphQueue int       `json:"graph_queue"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type IngestStatusResponse struct {
	Documents map[string]IngestDocumentStatus `json:"documents"`
}

type IngestDocumentStatus struct {
	Status    string    `json:"status" example:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required" `
	ChatID  string `json:"chatID,omitempty" `
}
type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type IngestDocumentRequest struct {
	DocumentName string `json:"document_name" validate:"required"`
}
