package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// LIVE CHAT OVER WEBSOCKET:
// GET /api/groups/{id}/ws upgrades to a WebSocket. The server sends
//
//	{"type": "messages", "data": [...full chat history...]}
//
// once on connect and again every time the chat changes, whether the change
// came from this server or was picked up from the shared store. Clients may
// post through the socket too:
//
//	{"type": "send", "text": "hello"}
//
// A rejected post comes back as {"type": "error", "data": {...}}. A member
// removed from the group gets one error frame and the socket is closed.

// liveFrame is a server → client frame.
type liveFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// liveInput is a client → server frame.
type liveInput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// HandleLive streams the group chat to a member.
func (h *GroupHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	userID, groupID := currentUser(r), r.PathValue("id")

	// Membership is checked before upgrading so outsiders get a plain 403/404.
	sub, history, err := h.groups.Subscribe(userID, groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Warn("live chat: upgrade failed", slog.String("group_id", groupID), slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	h.logger.Info("live chat: connected", slog.String("group_id", groupID), slog.String("user", userID))
	defer h.logger.Info("live chat: disconnected", slog.String("group_id", groupID), slog.String("user", userID))

	// gorilla allows one concurrent writer, so the reader reports rejected
	// posts here instead of writing them itself.
	rejected := make(chan error, 1)
	done := make(chan struct{})
	go h.readLive(r.Context(), conn, userID, groupID, rejected, done)

	if err := conn.WriteJSON(liveFrame{Type: "messages", Data: history}); err != nil {
		return
	}

	for {
		select {
		case messages, ok := <-sub.C:
			if !ok {
				return
			}
			if err := h.groups.CheckMember(userID, groupID); err != nil {
				h.endLive(conn, groupID, userID, err)
				return
			}
			if err := conn.WriteJSON(liveFrame{Type: "messages", Data: messages}); err != nil {
				return
			}
		case err := <-rejected:
			_, body := classify(err)
			if err := conn.WriteJSON(liveFrame{Type: "error", Data: body}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// endLive tells a member who lost access why the feed stops, then closes it.
func (h *GroupHandler) endLive(conn *websocket.Conn, groupID, userID string, err error) {
	h.logger.Info("live chat: access revoked", slog.String("group_id", groupID), slog.String("user", userID))

	_, body := classify(err)
	_ = conn.WriteJSON(liveFrame{Type: "error", Data: body})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, body.Message),
		time.Now().Add(time.Second))
}

// readLive handles client frames until the connection closes.
func (h *GroupHandler) readLive(ctx context.Context, conn *websocket.Conn, userID, groupID string, rejected chan<- error, done chan<- struct{}) {
	defer close(done)

	for {
		var in liveInput
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if in.Type != "send" {
			continue
		}
		if _, err := h.groups.SendMessage(ctx, userID, groupID, in.Text); err != nil {
			select {
			case rejected <- err:
			default:
			}
		}
	}
}
