package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// NoticeEnvelope carries data plus non-blocking notices for degraded results.
type NoticeEnvelope struct {
	Data    any      `json:"data"`
	Notices []string `json:"notices,omitempty"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
