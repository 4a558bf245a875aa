package widget

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	var b strings.Builder
	if err := Render(&b, Params{BaseURL: "https://bots.example.com", APIKey: "sa-123"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"'https://bots.example.com'",
		"|| 'sa-123'",
		"/api/public/widget-config?apiKey=",
		"/api/public/query",
		"'Bearer ' + apiKey",
		"Chat with AI",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered script missing %q", want)
		}
	}
}

func TestRenderEscapesParams(t *testing.T) {
	var b strings.Builder
	if err := Render(&b, Params{BaseURL: "x", APIKey: "';alert(1);//"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := b.String()
	if strings.Contains(out, "|| '';alert(1)") {
		t.Error("api key broke out of the string literal")
	}
	if !strings.Contains(out, `\';alert(1);//`) {
		t.Error("api key was not escaped")
	}
}
