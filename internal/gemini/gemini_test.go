package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hola "), genai.Text("mundo")}},
		}},
	}
	got, err := responseText(resp)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hola mundo" {
		t.Errorf("responseText = %q", got)
	}
}

func TestResponseText_Empty(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"no text parts": {Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}}}},
	} {
		if _, err := responseText(resp); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
