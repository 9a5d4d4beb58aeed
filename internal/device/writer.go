// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package device

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

const nameWriter = "stdout"

// WriterSender writes every message as a single JSON line to the underlying writer.
type WriterSender struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterSender returns a WriterSender for out. A nil writer selects stdout.
func NewWriterSender(out io.Writer) *WriterSender {
	if out == nil {
		out = os.Stdout
	}
	return &WriterSender{enc: json.NewEncoder(out)}
}

func (w *WriterSender) Name() string {
	return nameWriter
}

func (w *WriterSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &SendError{Transport: nameWriter, Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(msg); err != nil {
		return &SendError{Transport: nameWriter, Err: err}
	}
	return nil
}
