package ai

import "encoding/json"

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// openAIErrorBody is the error envelope of OpenAI-compatible APIs
type openAIErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

func decodeOpenAIError(body []byte) string {
	var e openAIErrorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		return truncateBody(body)
	}
	if e.Error.Type != "" {
		return e.Error.Message + " (type: " + e.Error.Type + ")"
	}
	return e.Error.Message
}

func openAIHeaders(apiKey string) map[string]string {
	if apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
