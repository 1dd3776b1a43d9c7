package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"l10ntrack/internal/analyzer"
	"l10ntrack/pkg/errors"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// streamMessage is one frame of the analysis progress stream.
type streamMessage struct {
	Type     string             `json:"type"` // started, progress, done, error
	SiteID   string             `json:"siteId,omitempty"`
	Total    int                `json:"total,omitempty"`
	Progress *analyzer.Progress `json:"progress,omitempty"`
	Report   *analyzer.Report   `json:"report,omitempty"`
	Error    *apiError          `json:"error,omitempty"`
}

// analyzeStream runs an analysis and pushes a frame per finished language
// over a websocket. Closing the socket cancels the run.
func (h *handler) analyzeStream(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sites.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, http.StatusOK)
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	// the client never sends data; reading only surfaces pongs and close frames
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writeCh := make(chan streamMessage, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()

		for {
			select {
			case out, ok := <-writeCh:
				if !ok {
					_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	push := func(msg streamMessage) {
		select {
		case writeCh <- msg:
		case <-writerDone:
		}
	}

	push(streamMessage{Type: "started", SiteID: s.ID, Total: len(s.TargetLanguages())})

	report, err := h.Analyzer.AnalyzeSite(ctx, s, analyzer.WithProgress(func(p analyzer.Progress) {
		push(streamMessage{Type: "progress", SiteID: s.ID, Progress: &p})
	}))
	if err != nil {
		err = runError(err)
		push(streamMessage{
			Type:   "error",
			SiteID: s.ID,
			Error:  &apiError{Code: errors.ToAPICode(err), Message: errors.Summary(err)},
		})
	} else {
		push(streamMessage{Type: "done", SiteID: s.ID, Report: report})
	}

	close(writeCh)
	<-writerDone
}
