package model

// ErrorResponse defines error response structure.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// QuotaState is embedded in every mutating response so clients can redraw usage.
type QuotaState struct {
	UsedBytes  int64 `json:"used_bytes"`
	LimitBytes int64 `json:"limit_bytes"`
}

// QuotaStateOf returns the quota fields of an account snapshot.
func QuotaStateOf(a *Account) QuotaState {
	if a == nil {
		return QuotaState{}
	}
	return QuotaState{UsedBytes: a.UsedBytes, LimitBytes: a.LimitBytes}
}
