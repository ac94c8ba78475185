package stt

import "context"

// Transcriber converts one utterance's audio file into text. Calls may take
// seconds; implementations must honor context cancellation. The caller owns
// the input file and deletes it after the call returns, success or failure.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
