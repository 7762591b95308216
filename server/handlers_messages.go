package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-message-triage/messages"
)

type analysisResponse struct {
	IsRelevant *bool  `json:"isRelevant"`
	Summary    string `json:"summary"`
}

type messageResponse struct {
	ID       string            `json:"id"`
	SenderID string            `json:"from"`
	Kind     messages.Kind     `json:"kind"`
	Body     string            `json:"body,omitempty"`
	FileName string            `json:"fileName,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	FileSize int64             `json:"fileSize,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Date     time.Time         `json:"date"`
	Analysis *analysisResponse `json:"analysis,omitempty"`
}

func toMessageResponse(msg *messages.Message) messageResponse {
	resp := messageResponse{
		ID:       msg.ID,
		SenderID: msg.SenderID,
		Kind:     msg.Kind,
		Body:     msg.Body,
		FileName: msg.FileName,
		MimeType: msg.MimeType,
		FileSize: msg.FileSize,
		Tags:     msg.Tags,
		Date:     msg.Date,
	}
	if msg.Analysis != nil {
		resp.Analysis = &analysisResponse{
			IsRelevant: msg.Analysis.IsRelevant,
			Summary:    msg.Analysis.Summary,
		}
	}
	return resp
}

func toMessageResponses(msgs []*messages.Message) []messageResponse {
	responses := make([]messageResponse, 0, len(msgs))
	for _, msg := range msgs {
		responses = append(responses, toMessageResponse(msg))
	}
	return responses
}

// MessagesListHandler returns the tenant's retained media messages, newest
// first.
func (s *Server) MessagesListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := s.messages.List(r.Context(), messages.Filter{
			TenantID: tenantID(r),
			Kind:     messages.KindMedia,
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("listing messages")
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		writeJSON(w, http.StatusOK, toMessageResponses(msgs))
	}
}

// MessageDownloadHandler serves a stored media file.
func (s *Server) MessageDownloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := s.messages.Get(r.Context(), r.PathValue("id"))
		if err != nil || msg.Kind != messages.KindMedia || msg.TenantID != tenantID(r) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="`+msg.FileName+`"`)
		http.ServeFile(w, r, msg.Path)
	}
}

// MessagesSearchHandler filters the tenant's media messages by free text,
// mime type and relative date range.
func (s *Server) MessagesSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		filter := messages.Filter{
			TenantID: tenantID(r),
			Kind:     messages.KindMedia,
			Search:   query.Get("q"),
		}
		if mime := query.Get("type"); mime != "" && mime != "all" {
			filter.MimeContains = mime
		}
		if dateRange := query.Get("date"); dateRange != "" {
			filter.Since = messages.DateRange(dateRange).Since(time.Now())
		}

		msgs, err := s.messages.List(r.Context(), filter)
		if err != nil {
			s.logger.Error().Err(err).Msg("searching messages")
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		writeJSON(w, http.StatusOK, toMessageResponses(msgs))
	}
}

// MessagesAnalyzeHandler classifies the tenant's retained text messages on
// demand and returns them with their verdicts.
func (s *Server) MessagesAnalyzeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analyzed, err := s.pipeline.AnalyzeTexts(r.Context(), tenantID(r))
		if err != nil {
			s.logger.Error().Err(err).Msg("analyzing text messages")
			writeError(w, http.StatusInternalServerError, "server error")
			return
		}
		if len(analyzed) == 0 {
			writeError(w, http.StatusNotFound, "no text messages found")
			return
		}
		writeJSON(w, http.StatusOK, toMessageResponses(analyzed))
	}
}
