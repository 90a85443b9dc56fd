package feishu

// Message 机器人消息
type Message interface {
	Type() string
	Content() any
}

// PostMessage 富文本消息
type PostMessage struct {
	title   string
	content [][]Element
}

// Element 富文本元素
type Element struct {
	Tag    string `json:"tag"`
	Text   string `json:"text,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Href   string `json:"href,omitempty"`
}

func NewPostMessage(title string) *PostMessage {
	return &PostMessage{title: title}
}

// AddLine 追加一行
func (m *PostMessage) AddLine(elements ...Element) *PostMessage {
	m.content = append(m.content, elements)
	return m
}

func (m *PostMessage) Type() string { return "post" }

func (m *PostMessage) Content() any {
	return map[string]any{
		"post": map[string]any{
			"zh_cn": map[string]any{
				"title":   m.title,
				"content": m.content,
			},
		},
	}
}

func Text(text string) Element { return Element{Tag: "text", Text: text} }
func AtAll() Element           { return Element{Tag: "at", UserID: "all"} }
