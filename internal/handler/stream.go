package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/study-buddy/internal/apperror"
)

// SERVER-SENT EVENTS:
// Chat replies are streamed as they are generated. Each piece of the reply
// is sent as its own event so the page can render the message growing:
//
//   event: chunk
//   data: {"text":"Photosynthesis is"}
//
//   event: done
//   data: {"text":"Photosynthesis is how plants..."}
//
// A failure mid-stream ends with an "error" event carrying the fixed chat
// failure message instead of "done".

type streamText struct {
	Text string `json:"text"`
}

// writeEvent sends one SSE event and flushes it to the client.
func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return rc.Flush()
}

// stream relays a chat reply to the client as SSE. It returns the upstream
// error, if any, after the client has been told.
func stream(w http.ResponseWriter, chunks <-chan string, errs <-chan error) error {
	rc := http.NewResponseController(w)
	// Replies can outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var full strings.Builder
	clientGone := false
	for chunk := range chunks {
		full.WriteString(chunk)
		if clientGone {
			continue
		}
		if err := writeEvent(w, rc, "chunk", streamText{Text: chunk}); err != nil {
			clientGone = true
		}
	}

	if err := <-errs; err != nil {
		_ = writeEvent(w, rc, "error", ErrorResponse{Error: "upstream_error", Message: apperror.MsgChatFailed})
		return err
	}
	_ = writeEvent(w, rc, "done", streamText{Text: full.String()})
	return nil
}
