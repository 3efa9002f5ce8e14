package dto

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type CommentListResponse struct {
	Success bool          `json:"success"`
	Data    []CommentItem `json:"data"`
	HasMore bool          `json:"hasMore"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Store     string `json:"store"`
}

func OK(data interface{}) SuccessResponse {
	return SuccessResponse{Success: true, Data: data}
}

func Fail(message string) ErrorResponse {
	return ErrorResponse{Success: false, Message: message}
}
