package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/service"
)

// GroupHandler serves study groups, their chat and their shared notes.
type GroupHandler struct {
	groups   *service.GroupService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewGroupHandler creates a GroupHandler. checkOrigin decides which pages may
// open the live chat socket; nil accepts same-origin requests only.
func NewGroupHandler(groups *service.GroupService, checkOrigin func(r *http.Request) bool, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{
		groups:   groups,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   logger,
	}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type memberRequest struct {
	Email string `json:"email"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateGroupResponse is a new group and what creating it unlocked.
type CreateGroupResponse struct {
	Group           model.StudyGroup    `json:"group"`
	NewAchievements []model.Achievement `json:"newAchievements"`
}

// ShareNoteResponse is a posted note and what sharing it unlocked.
type ShareNoteResponse struct {
	Note            model.SharedNote    `json:"note"`
	NewAchievements []model.Achievement `json:"newAchievements"`
}

// HandleList returns the groups the caller belongs to.
//
// HTTP: GET /api/groups
func (h *GroupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.groups.List(currentUser(r)))
}

// HandleCreate creates a group owned by the caller.
//
// HTTP: POST /api/groups
// REQUEST BODY: {"name": "Physics 101"}
func (h *GroupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, unlocked, err := h.groups.Create(r.Context(), currentUser(r), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateGroupResponse{Group: group, NewAchievements: unlocked})
}

// HandleGet returns one group.
//
// HTTP: GET /api/groups/{id}
func (h *GroupHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.Get(currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// HandleAddMember adds an email to the group.
//
// HTTP: POST /api/groups/{id}/members
// REQUEST BODY: {"email": "bob@example.com"}
func (h *GroupHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := h.groups.AddMember(r.Context(), currentUser(r), r.PathValue("id"), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// HandleRemoveMember removes a member. Only the owner may do this.
//
// HTTP: DELETE /api/groups/{id}/members/{email}
func (h *GroupHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	group, err := h.groups.RemoveMember(r.Context(), currentUser(r), r.PathValue("id"), r.PathValue("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// HandleMessages returns the group's chat history.
//
// HTTP: GET /api/groups/{id}/messages
func (h *GroupHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.groups.Messages(currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// HandleSendMessage posts to the group chat.
//
// HTTP: POST /api/groups/{id}/messages
// REQUEST BODY: {"text": "Anyone up for a quiz?"}
func (h *GroupHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.groups.SendMessage(r.Context(), currentUser(r), r.PathValue("id"), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// HandleNotes returns the group's shared notes.
//
// HTTP: GET /api/groups/{id}/notes
func (h *GroupHandler) HandleNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.groups.Notes(currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleShareNote posts a note to the group.
//
// HTTP: POST /api/groups/{id}/notes
// REQUEST BODY: {"title": "Formulas", "content": "F = ma"}
func (h *GroupHandler) HandleShareNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	note, unlocked, err := h.groups.ShareNote(r.Context(), currentUser(r), r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ShareNoteResponse{Note: note, NewAchievements: unlocked})
}

// HandleDeleteNote removes a note. Its sender or the group owner may do this.
//
// HTTP: DELETE /api/groups/{id}/notes/{noteId}
func (h *GroupHandler) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.groups.DeleteNote(r.Context(), currentUser(r), r.PathValue("id"), r.PathValue("noteId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
