package canonical

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// DoneFrame is the terminal SSE frame every streaming dispatch ends with.
const DoneFrame = "data: [DONE]\n\n"

// WriteFrame formats v as a single SSE "data: <json>\n\n" frame and writes
// it to w, flushing immediately so the client sees it without buffering
// delay (§4.D: "data: <json>\n\n").
func WriteFrame(w *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("canonical: marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// WriteDone writes the terminator frame.
func WriteDone(w *bufio.Writer) error {
	if _, err := w.WriteString(DoneFrame); err != nil {
		return err
	}
	return w.Flush()
}
