package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/costnav/costnav/internal/observability"
	"github.com/costnav/costnav/internal/query"
	"github.com/costnav/costnav/internal/sqlgate"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question    string           `json:"question"`
	SQLQuery    *string          `json:"sql_query"`
	Results     []map[string]any `json:"results"`
	Answer      string           `json:"answer"`
	Explanation string           `json:"explanation"`
}

const (
	explanationAnswered  = "SQL generated by LLM and executed; answer grounded in returned rows."
	explanationEmptyRows = "No rows returned; generated grounded answer from empty result set."
	explanationDeclined  = "No SQL generated for this question; grounded answer produced from empty result set."
)

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil || deps.Answerer == nil || deps.QueryEngine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "natural language queries are not configured", false, nil)
		return
	}

	var req askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_BODY", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	translateStart := time.Now()
	sqlText, err := deps.Translator.Translate(r.Context(), question)
	observability.ObserveAskStage("translate", time.Since(translateStart))
	if err != nil {
		observability.ObserveAskOutcome("translation_failed")
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATION_FAILED", "failed to generate SQL query", true, map[string]any{"details": err.Error()})
		return
	}

	// Model declined: answer over an empty result set instead of failing.
	if sqlText == "" {
		answer := generateAnswer(r.Context(), deps, question, "", []map[string]any{})
		observability.ObserveAskOutcome("declined")
		writeJSON(w, http.StatusOK, askResponse{
			Question:    question,
			SQLQuery:    nil,
			Results:     []map[string]any{},
			Answer:      answer,
			Explanation: explanationDeclined,
		})
		return
	}

	if !sqlgate.IsReadOnly(sqlText) {
		observability.IncrementSQLGateRejections()
		observability.ObserveAskOutcome("rejected")
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "Only read-only SELECT queries are allowed.", false, map[string]any{"sql_query": sqlText})
		return
	}

	executeStart := time.Now()
	result, err := deps.QueryEngine.Execute(r.Context(), sqlText)
	observability.ObserveAskStage("execute", time.Since(executeStart))
	if err != nil {
		observability.ObserveAskOutcome("execution_failed")
		var execErr *query.ExecutionError
		if errors.As(err, &execErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", execErr.Error(), false, map[string]any{"sql_query": sqlText})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", "query execution failed", true, map[string]any{"details": err.Error()})
		return
	}

	results := result.RowMaps()
	answer := generateAnswer(r.Context(), deps, question, sqlText, results)

	explanation := explanationAnswered
	if len(results) == 0 {
		explanation = explanationEmptyRows
	}
	observability.ObserveAskOutcome("answered")
	writeJSON(w, http.StatusOK, askResponse{
		Question:    question,
		SQLQuery:    &sqlText,
		Results:     results,
		Answer:      answer,
		Explanation: explanation,
	})
}

// generateAnswer never fails the request; answerer errors degrade into
// the answer text itself.
func generateAnswer(ctx context.Context, deps Dependencies, question, sqlText string, rows []map[string]any) string {
	answerStart := time.Now()
	answer, err := deps.Answerer.Answer(ctx, question, sqlText, rows)
	observability.ObserveAskStage("answer", time.Since(answerStart))
	if err != nil {
		return fmt.Sprintf("Unable to generate grounded answer: %v", err)
	}
	return answer
}
