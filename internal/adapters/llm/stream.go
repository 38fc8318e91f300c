package llm

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

// decodeFunc turns one stream record into token text. done reports the
// end of the generation.
type decodeFunc func(data []byte) (text string, done bool, err error)

// emit sends tok unless ctx is cancelled first.
func emit(ctx context.Context, ch chan<- ports.StreamToken, tok ports.StreamToken) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- tok:
		return true
	}
}

// streamSSE reads `data:` records until [DONE] or EOF.
func streamSSE(ctx context.Context, body io.ReadCloser, provider string, decode decodeFunc) <-chan ports.StreamToken {
	return streamLines(ctx, body, provider, func(line string) (string, bool, bool, error) {
		if !strings.HasPrefix(line, "data:") {
			return "", false, true, nil
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return "", true, false, nil
		}
		text, done, err := decode([]byte(data))
		return text, done, false, err
	})
}

// streamNDJSON reads one JSON object per line.
func streamNDJSON(ctx context.Context, body io.ReadCloser, provider string, decode decodeFunc) <-chan ports.StreamToken {
	return streamLines(ctx, body, provider, func(line string) (string, bool, bool, error) {
		text, done, err := decode([]byte(line))
		return text, done, false, err
	})
}

type lineFunc func(line string) (text string, done, skip bool, err error)

func streamLines(ctx context.Context, body io.ReadCloser, provider string, handle lineFunc) <-chan ports.StreamToken {
	ch := make(chan ports.StreamToken)
	go func() {
		defer close(ch)
		defer body.Close()

		reader := bufio.NewReader(body)
		for {
			line, readErr := reader.ReadString('\n')
			if line = strings.TrimSpace(line); line != "" {
				text, done, skip, err := handle(line)
				switch {
				case err != nil:
					emit(ctx, ch, ports.StreamToken{Error: transportError(provider, err)})
					return
				case skip:
				case text != "":
					if !emit(ctx, ch, ports.StreamToken{Content: text}) {
						return
					}
				}
				if done {
					return
				}
			}

			if readErr != nil {
				if readErr != io.EOF && ctx.Err() == nil {
					emit(ctx, ch, ports.StreamToken{Error: transportError(provider, readErr)})
				}
				return
			}
		}
	}()
	return ch
}
