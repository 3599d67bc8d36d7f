// Package notify delivers report text to the chat webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/wonny/krxscan/pkg/httputil"
	"github.com/wonny/krxscan/pkg/logger"
)

// ErrDelivery wraps every failed webhook post
var ErrDelivery = errors.New("notification delivery failed")

// DefaultChunkSize stays under the 2000 character message limit
const DefaultChunkSize = 1900

// Chunk splits text into pieces of at most size runes. Concatenating the
// pieces in order gives back text; no separators are added.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// webhookPayload is the Discord-compatible message body
type webhookPayload struct {
	Content string `json:"content"`
}

// Webhook posts messages to a Discord-compatible webhook
// ⭐ SSOT: 알림 전송은 이 클라이언트에서만
type Webhook struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
	chunkSize  int
}

// NewWebhook creates a webhook notifier
func NewWebhook(httpClient *httputil.Client, log *logger.Logger, url string, chunkSize int) *Webhook {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Webhook{
		httpClient: httpClient,
		logger:     log,
		url:        url,
		chunkSize:  chunkSize,
	}
}

// Send posts text in order, one message per chunk. Delivery stops at the
// first failed chunk.
func (w *Webhook) Send(ctx context.Context, text string) error {
	chunks := Chunk(text, w.chunkSize)
	for i, chunk := range chunks {
		if err := w.post(ctx, chunk); err != nil {
			return fmt.Errorf("%w: chunk %d/%d: %w", ErrDelivery, i+1, len(chunks), err)
		}
	}

	w.logger.WithFields(map[string]interface{}{
		"chunks": len(chunks),
		"length": len([]rune(text)),
	}).Debug("Notification sent")
	return nil
}

func (w *Webhook) post(ctx context.Context, content string) error {
	resp, err := w.httpClient.PostJSON(ctx, w.url, webhookPayload{Content: content})
	if err != nil {
		return err
	}
	_, err = httputil.ReadBody(resp)
	return err
}

// Writer prints messages instead of posting them (dry run)
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a notifier writing to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send writes text followed by a newline
func (w *Writer) Send(_ context.Context, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintln(w.w, text); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// Recorder keeps every message in memory
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

// Send records text
func (r *Recorder) Send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

// Messages returns a copy of what was sent
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
