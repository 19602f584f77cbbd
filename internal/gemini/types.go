package gemini

import "fmt"

// Blob is an inline base64 payload tagged with its media type.
type Blob struct {
	MimeType string
	Data     string
}

// Part is one element of a multimodal request: either text or an image.
type Part struct {
	Text  string
	Image *Blob
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(mimeType, data string) Part {
	return Part{Image: &Blob{MimeType: mimeType, Data: data}}
}

type ImageRequest struct {
	Model       string
	Parts       []Part
	AspectRatio string
}

type Response struct {
	Text         string
	Image        *Blob
	FinishReason string
}

// DataURL renders the image as a data URL, or "" when there is none.
func (r Response) DataURL() string {
	if r.Image == nil {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", r.Image.MimeType, r.Image.Data)
}

type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API %s: %s", e.Status, e.Message)
}
