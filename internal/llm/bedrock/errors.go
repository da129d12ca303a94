package bedrock

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

// classifyError maps a Bedrock failure to an AppError. The service error code
// is used when the SDK exposes one; otherwise the message is searched for the
// exception name.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var code string
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode()
	}
	msg := err.Error()
	is := func(names ...string) bool {
		for _, n := range names {
			if code == n || strings.Contains(msg, n) {
				return true
			}
		}
		return false
	}

	cause := errors.Join(common.ErrLLMTransport, err)
	switch {
	case is("UnrecognizedClientException", "InvalidSignatureException", "ExpiredTokenException"):
		return common.NewAppError(common.CodeLLMAuth, "AWS Bedrock authentication failed.", cause)
	case is("ValidationException"):
		return common.NewAppError(common.CodeLLMValidation, "AWS Bedrock validation error: "+msg, cause)
	case is("ModelNotReadyException", "ThrottlingException", "ServiceUnavailableException"):
		ae := common.NewAppError(common.CodeLLMUnavailable, "AWS Bedrock temporarily unavailable.", cause)
		ae.Retryable = true
		return ae
	case is("AccessDeniedException"):
		return common.NewAppError(common.CodeLLMPermission, "Permission denied for AWS Bedrock.", cause)
	default:
		return common.NewAppError(common.CodeLLMFailed, "Bedrock extraction failed: "+msg, cause)
	}
}
