package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// ErrIncompleteStream is the terminal error reported when the connection
// ends before the server sent done or error.
const ErrIncompleteStream = "connection closed before the answer was complete"

const maxRecordSize = 1 << 20

type wireRecord struct {
	Chunk   *string  `json:"chunk"`
	Done    bool     `json:"done"`
	Sources []string `json:"sources"`
	Error   *string  `json:"error"`
}

// ParseRecord decodes one "data:" line. ok is false for anything that is
// not a well-formed answer record.
func ParseRecord(line string) (entities.AnswerChunk, bool) {
	data, found := strings.CutPrefix(strings.TrimSpace(line), "data:")
	if !found {
		return entities.AnswerChunk{}, false
	}
	var rec wireRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &rec); err != nil {
		return entities.AnswerChunk{}, false
	}
	switch {
	case rec.Error != nil:
		return entities.ErrorChunk(*rec.Error), true
	case rec.Done:
		return entities.DoneChunk(rec.Sources), true
	case rec.Chunk != nil:
		return entities.TokenChunk(*rec.Chunk), true
	default:
		return entities.AnswerChunk{}, false
	}
}

// ReadStream parses an event stream into out until a terminal record.
// Malformed records are skipped. A stream that ends without a terminal
// record yields an error chunk unless ctx was cancelled.
func ReadStream(ctx context.Context, r io.Reader, out chan<- entities.AnswerChunk, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	send := func(c entities.AnswerChunk) bool {
		select {
		case <-ctx.Done():
			return false
		case out <- c:
			return true
		}
	}

	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := readLine(reader)
		if errors.Is(err, errRecordTooLarge) {
			logger.Debug("skipping oversized stream record", zap.Int("limit", maxRecordSize))
			continue
		}
		if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, ":") {
			chunk, ok := ParseRecord(line)
			if !ok {
				logger.Debug("skipping malformed stream record", zap.String("record", line))
			} else if !send(chunk) || chunk.IsTerminal() {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.Debug("stream read failed", zap.Error(err))
			}
			break
		}
	}

	if ctx.Err() != nil {
		return
	}
	send(entities.ErrorChunk(ErrIncompleteStream))
}

var errRecordTooLarge = errors.New("stream record exceeds size limit")

// readLine returns the next line without its terminator. A line longer than
// maxRecordSize is consumed and reported as errRecordTooLarge.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	oversized := false
	for {
		frag, isPrefix, err := r.ReadLine()
		if !oversized {
			if len(buf)+len(frag) > maxRecordSize {
				oversized, buf = true, nil
			} else {
				buf = append(buf, frag...)
			}
		}
		if err != nil {
			if oversized {
				return "", err
			}
			return string(buf), err
		}
		if !isPrefix {
			break
		}
	}
	if oversized {
		return "", errRecordTooLarge
	}
	return string(buf), nil
}
