package llm

import (
	"testing"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	input := `{"intent": "fact", "confidence": 0.9}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_MarkdownCodeFence(t *testing.T) {
	input := "```json\n{\"shouldVisualize\": true, \"graphs\": []}\n```"
	expected := `{"shouldVisualize": true, "graphs": []}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	input := `Here is my analysis:
{"intent": "report", "confidence": 0.75}
Let me know if you need anything else.`
	expected := `{"intent": "report", "confidence": 0.75}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_NestedStructures(t *testing.T) {
	input := `{"graphs": [{"xAxis": {"field": "month"}, "yAxis": {"field": "total"}}]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_ThinkTags(t *testing.T) {
	input := `<think>
The user wants a count, that is a quick metric.
</think>
{"intent": "quick_metric", "confidence": 0.85}`

	expected := `{"intent": "quick_metric", "confidence": 0.85}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	input := `{"sql": "SELECT '{' AS brace", "note": "ok"}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if _, err := ExtractJSON("no structured content here"); err == nil {
		t.Fatal("expected error for response without JSON")
	}
}

func TestParseJSONResponse(t *testing.T) {
	type classification struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}

	result, err := ParseJSONResponse[classification]("```json\n{\"intent\": \"chitchat\", \"confidence\": 0.95}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Intent != "chitchat" {
		t.Errorf("expected intent chitchat, got %q", result.Intent)
	}
	if result.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %v", result.Confidence)
	}
}

func TestParseJSONResponse_TypeMismatch(t *testing.T) {
	type target struct {
		Count int `json:"count"`
	}
	if _, err := ParseJSONResponse[target](`{"count": "not-a-number"}`); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
