package model

// ProgressEvent is one entry of the ordered ingestion status stream.
// Failed marks a per-item failure note; the success-completion sentinel
// is the closing of the stream itself.
type ProgressEvent struct {
	Message string `json:"message"`
	Failed  bool   `json:"failed"`
}

func Progress(message string) ProgressEvent {
	return ProgressEvent{Message: message}
}

func ProgressFailure(message string) ProgressEvent {
	return ProgressEvent{Message: message, Failed: true}
}
