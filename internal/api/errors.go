package api

// ErrorResponse covers both error shapes the API uses: {"error": "..."} from
// the forum views and {"detail": "..."} from the framework itself.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (e ErrorResponse) Text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}
