package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/service"
)

// StudyHandler serves study sessions and the doubt assistant.
type StudyHandler struct {
	study  *service.StudyService
	logger *slog.Logger
}

func NewStudyHandler(study *service.StudyService, logger *slog.Logger) *StudyHandler {
	return &StudyHandler{study: study, logger: logger}
}

type startRequest struct {
	GroupID string `json:"groupId"`
}

type guideRequest struct {
	Topic string `json:"topic"`
}

type answersRequest struct {
	Answers []*string `json:"answers"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// QuizResponse wraps a generated quiz.
type QuizResponse struct {
	Quiz model.Quiz `json:"quiz"`
}

// HistoryResponse is a chat transcript.
type HistoryResponse struct {
	Messages []model.ChatMessage `json:"messages"`
}

// HandleStart opens a study session, solo or for a group.
//
// HTTP: POST /api/study/sessions
// REQUEST BODY: {"groupId": ""}   (an empty body starts solo study)
func (h *StudyHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	session, err := h.study.Start(currentUser(r), req.GroupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// HandleGet returns the session's topic, guide, quiz, results and chat.
//
// HTTP: GET /api/study/sessions/{id}
func (h *StudyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.study.Get(currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleGuide generates a study guide for a topic.
//
// HTTP: POST /api/study/sessions/{id}/guide
// REQUEST BODY: {"topic": "Photosynthesis"}
func (h *StudyHandler) HandleGuide(w http.ResponseWriter, r *http.Request) {
	var req guideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.study.GenerateGuide(r.Context(), currentUser(r), r.PathValue("id"), req.Topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleQuiz generates a quiz on the session topic.
//
// HTTP: POST /api/study/sessions/{id}/quiz
func (h *StudyHandler) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.study.GenerateQuiz(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QuizResponse{Quiz: quiz})
}

// HandleAnswers grades the caller's answers.
//
// HTTP: POST /api/study/sessions/{id}/answers
// REQUEST BODY: {"answers": ["Paris", null, "True"]}   (null = skipped)
func (h *StudyHandler) HandleAnswers(w http.ResponseWriter, r *http.Request) {
	var req answersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.study.CheckAnswers(r.Context(), currentUser(r), r.PathValue("id"), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleChat streams the topic chat's reply as server-sent events.
//
// HTTP: POST /api/study/sessions/{id}/chat
// REQUEST BODY: {"message": "Why do leaves change colour?"}
func (h *StudyHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	chunks, errs, err := h.study.TopicChat(r.Context(), currentUser(r), r.PathValue("id"), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := stream(w, chunks, errs); err != nil {
		h.logger.Error("topic chat failed", slog.String("session_id", r.PathValue("id")), slog.String("error", err.Error()))
	}
}

// HandleEnd closes the session and logs the time spent.
//
// HTTP: DELETE /api/study/sessions/{id}
func (h *StudyHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	summary, err := h.study.End(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleAssistantChat streams the doubt assistant's reply.
//
// HTTP: POST /api/assistant/chat
// REQUEST BODY: {"message": "What is a derivative?"}
func (h *StudyHandler) HandleAssistantChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	userID := currentUser(r)
	chunks, errs, err := h.study.AskAssistant(r.Context(), userID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := stream(w, chunks, errs); err != nil {
		h.logger.Error("assistant chat failed", slog.String("user", userID), slog.String("error", err.Error()))
	}
}

// HandleAssistantHistory returns the caller's assistant conversation.
//
// HTTP: GET /api/assistant/chat
func (h *StudyHandler) HandleAssistantHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{Messages: h.study.AssistantHistory(currentUser(r))})
}
