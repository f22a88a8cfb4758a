package response

// JSON envelope used by middleware and handlers that do not go through fres.

type Body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func Success(code, message string, data any) Body {
	return Body{Code: code, Message: message, Data: data}
}

func Error(code, message string, data any) Body {
	return Body{Code: code, Message: message, Data: data}
}
