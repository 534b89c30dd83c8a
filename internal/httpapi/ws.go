package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-kiu/internal/platform/identity"
	"github.com/p-n-ai/pai-kiu/internal/transcript"
)

// Stream message types.
const (
	msgProgress = "progress"
	msgResult   = "result"
	msgError    = "error"
)

const streamWriteTimeout = 10 * time.Second

// streamMessage is one frame of the transcript stream.
type streamMessage struct {
	Type          string       `json:"type"`
	CurrentMinute int          `json:"currentMinute,omitempty"`
	TotalMinutes  int          `json:"totalMinutes,omitempty"`
	VideoID       string       `json:"videoId,omitempty"`
	Text          string       `json:"text,omitempty"`
	Error         *errorDetail `json:"error,omitempty"`
}

// handleTranscriptStream upgrades to a WebSocket and streams a progress frame
// per minute of video, then one result or error frame, then closes.
func (s *Server) handleTranscriptStream(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	video := r.URL.Query().Get("video")
	if video == "" {
		writeError(w, r, transcript.ErrVideoIDRequired)
		return
	}
	if s.Transcripts == nil {
		writeError(w, r, ErrSourceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.OriginPatterns})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// The client never sends; CloseRead handles control frames and cancels
	// ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	var writeErr error
	send := func(m streamMessage) error {
		wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
		defer cancel()
		return wsjson.Write(wctx, conn, m)
	}

	res, err := s.Transcripts.Fetch(ctx, video, func(p transcript.Progress) {
		if writeErr != nil {
			return
		}
		writeErr = send(streamMessage{
			Type:          msgProgress,
			CurrentMinute: p.CurrentMinute,
			TotalMinutes:  p.TotalMinutes,
			Text:          p.Text,
		})
	})
	s.observeTranscript(ctx, id.UserID, res.VideoID, err)

	if writeErr != nil {
		slog.Info("transcript stream dropped", "user_id", id.UserID, "error", writeErr)
		return
	}
	if err != nil {
		detail := detailOf(err)
		if sendErr := send(streamMessage{Type: msgError, Error: &detail}); sendErr != nil {
			slog.Info("transcript stream dropped", "user_id", id.UserID, "error", sendErr)
			return
		}
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	if err := send(streamMessage{Type: msgResult, VideoID: res.VideoID, Text: res.Text}); err != nil {
		slog.Info("transcript stream dropped", "user_id", id.UserID, "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
