package recommend

import "errors"

var ErrNotFound = errors.New("not found")

// Stable error codes persisted with failed runs.
const (
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeConfiguration = "CONFIGURATION_ERROR"
	ErrorCodeLLMTimeout    = "LLM_TIMEOUT"
	ErrorCodeLLMExhausted  = "LLM_ALL_MODELS_FAILED"
	ErrorCodeLLMInvalid    = "LLM_OUTPUT_INVALID"
	ErrorCodeStorage       = "STORAGE_ERROR"
	ErrorCodeInternal      = "INTERNAL_ERROR"
)
