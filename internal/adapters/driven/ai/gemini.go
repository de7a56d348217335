package ai

import "encoding/json"

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiErrorBody is the error envelope of the Gemini API
type geminiErrorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func decodeGeminiError(body []byte) string {
	var e geminiErrorBody
	if err := json.Unmarshal(body, &e); err != nil || e.Error == nil {
		return truncateBody(body)
	}
	if e.Error.Status != "" {
		return e.Error.Message + " (status: " + e.Error.Status + ")"
	}
	return e.Error.Message
}

func geminiHeaders(apiKey string) map[string]string {
	return map[string]string{"x-goog-api-key": apiKey}
}
