// Package stream drives Server-Sent Event bodies in both directions: the
// generic line-level SSE reader used by every provider adapter to turn an
// upstream response body into types.StreamChunk values, and the
// OpenAI-compatible SSE writer the HTTP handler uses to relay those chunks
// back to the client.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/howard-nolan/hive/internal/types"
)

// FrameDecoder turns one SSE "data: ..." payload (with the prefix already
// stripped) into zero-or-more StreamChunks. Returning an empty slice and a
// nil error means "nothing to emit yet, keep reading" (e.g. an Anthropic
// content_block_start event). ok=false marks the decoder's own
// end-of-stream frame (e.g. Anthropic's message_stop): Drive sends the
// returned chunks and then stops reading without treating it as an error.
// The "[DONE]" sentinel is handled by Drive itself and never reaches the
// decoder.
type FrameDecoder func(payload string) (chunks []types.StreamChunk, ok bool, err error)

// Drive reads SSE lines from body, decodes each "data: " payload with
// decode, and sends the resulting chunks on the returned channel. It is
// the shared core of every streaming provider adapter: each one supplies
// its own FrameDecoder (the wire shape differs — OpenAI/Groq/OpenRouter
// send one delta per event, Anthropic spreads metadata across named
// events, Gemini repeats the full candidate shape every event) and gets
// the line-buffering, cancellation, and error-surfacing for free.
//
// Drive takes ownership of body and closes it before returning. The
// caller must not read from body after calling Drive.
func Drive(ctx context.Context, body io.ReadCloser, decode FrameDecoder) <-chan types.StreamChunk {
	ch := make(chan types.StreamChunk)

	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		// Provider SSE lines (especially Anthropic's content_block_delta
		// payloads) can exceed bufio.Scanner's default 64KB token limit
		// once a response carries a large tool-call argument; give it
		// plenty of headroom.
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		// lastID, lastModel, and lastUsage carry forward whatever the most
		// recent frame reported, since a provider's usage (and sometimes
		// its id/model) arrives on a frame separate from the one carrying
		// the finish reason — OpenAI's stream_options usage frame has no
		// choices at all, and the [DONE] sentinel itself carries nothing.
		var lastID, lastModel string
		var lastUsage *types.Usage

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")

			if payload == "[DONE]" {
				sendOrCancel(ctx, ch, types.StreamChunk{ID: lastID, Model: lastModel, Done: true, Usage: lastUsage})
				return
			}

			chunks, ok, err := decode(payload)
			if err != nil {
				sendOrCancel(ctx, ch, types.StreamChunk{Done: true, Error: fmt.Errorf("decoding stream event: %w", err)})
				return
			}
			// Send whatever this frame decoded to before honoring ok=false:
			// a decoder that signals end-of-stream by returning ok=false
			// (Anthropic's message_stop, Gemini's finish_reason frame)
			// packages its terminal chunk in that same call, and dropping
			// it here would silently swallow the final usage.
			for _, chunk := range chunks {
				if chunk.ID != "" {
					lastID = chunk.ID
				}
				if chunk.Model != "" {
					lastModel = chunk.Model
				}
				if chunk.Usage != nil {
					lastUsage = chunk.Usage
				}
				if !sendOrCancel(ctx, ch, chunk) {
					return
				}
			}
			if !ok {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			sendOrCancel(ctx, ch, types.StreamChunk{Done: true, Error: fmt.Errorf("reading stream: %w", err)})
		}
	}()

	return ch
}

// sendOrCancel sends chunk on ch, returning false if ctx was cancelled
// first instead of blocking forever on an abandoned consumer.
func sendOrCancel(ctx context.Context, ch chan<- types.StreamChunk, chunk types.StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// ---------------------------------------------------------------------------
// OpenAI-compatible SSE writer
// ---------------------------------------------------------------------------

type sseChunk struct {
	ID      string      `json:"id"`
	Object  string      `json:"object"`
	Model   string      `json:"model"`
	Choices []sseChoice `json:"choices"`
	Usage   *sseUsage   `json:"usage,omitempty"`
}

type sseChoice struct {
	Index        int      `json:"index"`
	Delta        sseDelta `json:"delta"`
	FinishReason *string  `json:"finish_reason"`
}

type sseDelta struct {
	Content string `json:"content,omitempty"`
}

type sseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Write reads StreamChunks from chunks and writes them to w as
// OpenAI-compatible Server-Sent Events, flushing after every event so the
// client sees tokens arrive in real time. It returns the first error
// reported by the upstream provider (via a chunk's Error field), if any.
func Write(w http.ResponseWriter, chunks <-chan types.StreamChunk) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support flushing (http.Flusher)")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for chunk := range chunks {
		if chunk.Error != nil {
			return chunk.Error
		}

		event := sseChunk{
			ID:     chunk.ID,
			Object: "chat.completion.chunk",
			Model:  chunk.Model,
			Choices: []sseChoice{
				{Index: 0, Delta: sseDelta{Content: chunk.Delta}},
			},
		}

		if chunk.Done {
			// Some providers (Gemini) put the last delta and the finish
			// signal in the same event. Flush the content first, then
			// emit a separate finish event, matching OpenAI's own
			// two-event shape for the end of a stream.
			if chunk.Delta != "" {
				if err := writeEvent(w, flusher, event); err != nil {
					return err
				}
			}
			reason := "stop"
			event.Choices[0].FinishReason = &reason
			event.Choices[0].Delta = sseDelta{}
			if chunk.Usage != nil {
				event.Usage = &sseUsage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				}
			}
		}

		if err := writeEvent(w, flusher, event); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("writing SSE done marker: %w", err)
	}
	flusher.Flush()
	return nil
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event sseChunk) error {
	jsonBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling SSE chunk: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonBytes); err != nil {
		return fmt.Errorf("writing SSE event: %w", err)
	}
	flusher.Flush()
	return nil
}
