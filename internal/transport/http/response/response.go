package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeNotFound           = 40400
	CodeInternalServer     = 50000
	CodeServiceUnavailable = 50300
)

// Machine-readable rejection reasons for clients.
const (
	ReasonInvalidRequest       = "invalid_request"
	ReasonMissingUserID        = "missing_user_id"
	ReasonUnsupportedMediaType = "unsupported_media_type"
	ReasonPayloadTooLarge      = "payload_too_large"
	ReasonExtractionFailed     = "extraction_failed"
	ReasonNotFound             = "not_found"
	ReasonProvidersExhausted   = "providers_exhausted"
	ReasonBackendUnavailable   = "backend_unavailable"
	ReasonInternal             = "internal_error"
)

type APIResponse struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Reason    string      `json:"reason,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

// Error writes the uniform error envelope. The request id lets a client
// report a failure that operators can find in the logs; message never
// carries credentials or provider API details.
func Error(c *gin.Context, httpStatus, code int, reason, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:      code,
		Message:   message,
		Reason:    reason,
		RequestID: c.GetString("request_id"),
	})
}
