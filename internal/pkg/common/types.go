package common

// Message 聊天消息結構，Content 為字串或 []Content
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// Content 多模態內容片段
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL 圖片 URL 結構
type ImageURL struct {
	URL string `json:"url"`
}

// SystemMessage 建立 system 消息
func SystemMessage(text string) Message {
	return Message{Role: "system", Content: text}
}

// UserMessage 建立純文字 user 消息
func UserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}

// UserImageMessage 建立帶圖片的 user 消息
func UserImageMessage(text, imageURL string) Message {
	return Message{
		Role: "user",
		Content: []Content{
			{Type: "text", Text: text},
			{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
		},
	}
}
