package models

// Message is one entry of a chat transcript.
type Message struct {
	IsUser bool   `json:"is_user"`
	Text   string `json:"text"`
}

func UserMessage(text string) Message {
	return Message{IsUser: true, Text: text}
}

func AssistantMessage(text string) Message {
	return Message{IsUser: false, Text: text}
}

// String renders the message the way the transcript shows it.
func (m Message) String() string {
	if m.IsUser {
		return "You: " + m.Text
	}
	return "Assistant: " + m.Text
}

// History is an append-only chat transcript. Append never mutates the receiver.
type History []Message

// Append returns a new history with msgs added at the end.
func (h History) Append(msgs ...Message) History {
	out := make(History, len(h), len(h)+len(msgs))
	copy(out, h)
	return append(out, msgs...)
}
