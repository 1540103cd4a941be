package models

// Reply is what a summarization agent answered. It is either the structured
// content of the answer or, when the answer had none, a plain text rendering
// of the whole response.
type Reply struct {
	text    string
	content bool
}

func ContentReply(text string) Reply {
	return Reply{text: text, content: true}
}

func OpaqueReply(raw string) Reply {
	return Reply{text: raw}
}

// Text returns the reply text regardless of variant.
func (r Reply) Text() string {
	return r.text
}

// HasContent reports whether the reply carried structured content.
func (r Reply) HasContent() bool {
	return r.content
}
