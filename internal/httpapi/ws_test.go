package httpapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-kiu/internal/transcript"
)

func (h *harness) dialStream(video string) *websocket.Conn {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/v1/transcripts/stream?video=" + video + "&token=" + h.token(ada)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		h.t.Fatalf("Dial() error = %v", err)
	}
	h.t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// readAll reads frames until the server closes the stream.
func readAll(t *testing.T, conn *websocket.Conn) []streamMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var msgs []streamMessage
	for {
		var m streamMessage
		err := wsjson.Read(ctx, conn, &m)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return msgs
		}
		if err != nil {
			t.Fatalf("Read() error = %v after %d frames", err, len(msgs))
		}
		msgs = append(msgs, m)
	}
}

func TestTranscriptStream(t *testing.T) {
	h := newHarness(t)
	msgs := readAll(t, h.dialStream("dQw4w9WgXcQ"))

	// Segments end at 85s: buckets 0..2 give three progress frames.
	if len(msgs) != 4 {
		t.Fatalf("got %d frames, want 3 progress + 1 result: %+v", len(msgs), msgs)
	}
	for i, m := range msgs[:3] {
		if m.Type != msgProgress || m.CurrentMinute != i+1 || m.TotalMinutes != 2 {
			t.Errorf("frame %d = %+v", i, m)
		}
	}
	if msgs[0].Text != "Plants make sugar." {
		t.Errorf("first progress text = %q", msgs[0].Text)
	}

	last := msgs[3]
	if last.Type != msgResult || last.VideoID != "dQw4w9WgXcQ" || last.Text != "Plants make sugar. Light drives it." {
		t.Errorf("result frame = %+v", last)
	}
}

func TestTranscriptStream_NoContent(t *testing.T) {
	h := newHarness(t)
	h.source.segments = []transcript.Segment{{Text: "[Applause]", Start: 0, Duration: 10}}

	msgs := readAll(t, h.dialStream("dQw4w9WgXcQ"))
	last := msgs[len(msgs)-1]
	if last.Type != msgError || last.Error == nil || last.Error.Kind != "no_content" {
		t.Errorf("last frame = %+v, want no_content error", last)
	}
}

func TestTranscriptStream_MissingVideo(t *testing.T) {
	h := newHarness(t)
	expectError(t, h.do(http.MethodGet, "/v1/transcripts/stream", h.token(ada), nil), http.StatusBadRequest, "validation")
}

func TestTranscriptStream_InvalidVideo(t *testing.T) {
	h := newHarness(t)
	msgs := readAll(t, h.dialStream("not-a-video"))
	if len(msgs) != 1 || msgs[0].Error == nil || msgs[0].Error.Kind != "validation" {
		t.Errorf("frames = %+v, want one validation error", msgs)
	}
}

func TestTranscriptStream_ClientGone(t *testing.T) {
	h := newHarness(t)
	conn := h.dialStream("dQw4w9WgXcQ")
	_ = conn.Close(websocket.StatusGoingAway, "")
	// The server must not panic or hang; the next request still works.
	if resp := h.do(http.MethodGet, "/healthz", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d after dropped stream", resp.StatusCode)
	}
}
