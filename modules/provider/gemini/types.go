package gemini

import "github.com/flemzord/sigma/internal/dialogue"

// generateRequest is the body of a generateContent call.
type generateRequest struct {
	Contents []dialogue.Turn `json:"contents"`
}

// generateResponse keeps only the fields the reply is read from.
type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content *content `json:"content"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text *string `json:"text"`
}

// firstText returns candidates[0].content.parts[0].text.
func (r *generateResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 {
		return "", false
	}
	c := r.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 || c.Parts[0].Text == nil {
		return "", false
	}
	return *c.Parts[0].Text, true
}
