package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// Wire records of the answer stream. Each is sent as one "data:" line.
type (
	chunkEvent struct {
		Chunk string `json:"chunk"`
	}
	doneEvent struct {
		Done    bool     `json:"done"`
		Sources []string `json:"sources"`
	}
	errorEvent struct {
		Error string `json:"error"`
	}
)

// EncodeEvent frames one answer chunk as a server-sent event.
func EncodeEvent(c entities.AnswerChunk) ([]byte, error) {
	var payload any
	switch c.Kind {
	case entities.ChunkToken:
		payload = chunkEvent{Chunk: c.Token}
	case entities.ChunkDone:
		sources := c.Sources
		if sources == nil {
			sources = []string{}
		}
		payload = doneEvent{Done: true, Sources: sources}
	case entities.ChunkError:
		payload = errorEvent{Error: c.Error}
	default:
		return nil, fmt.Errorf("unknown chunk kind %d", c.Kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(data) + 8)
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// sseWriter writes events and flushes after each so the client renders
// tokens as they arrive.
type sseWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) send(c entities.AnswerChunk) error {
	frame, err := EncodeEvent(c)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(frame); err != nil {
		return err
	}
	return s.rc.Flush()
}
