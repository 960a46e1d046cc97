package models

// ErrorCode is the canonical failure taxonomy. The orchestrator is the
// only component that emits user-visible errors.
type ErrorCode string

const (
	// CodeValidationFailed covers schema/length/evidence violations and
	// command or argument parsing failures.
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// CodeNoData means retrieval returned zero documents after every
	// auto-recovery attempt.
	CodeNoData ErrorCode = "NO_DATA"
	// CodeBudgetExceeded means a token, cost, or time cap was hit with no
	// remaining degradation step.
	CodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"
	// CodeModelUnavailable means every model in a route's chain failed.
	CodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	// CodeInternal is an unexpected failure in the core.
	CodeInternal ErrorCode = "INTERNAL"
)

// Retryable reports whether an immediate client retry is reasonable.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeNoData, CodeModelUnavailable, CodeInternal:
		return true
	default:
		return false
	}
}

// ErrorResponse is the canonical failure envelope.
type ErrorResponse struct {
	Code        ErrorCode `json:"code"`
	UserMessage string    `json:"user_message"`
	TechMessage string    `json:"tech_message"`
	Retryable   bool      `json:"retryable"`
	Meta        Meta      `json:"meta"`
}

// NewErrorResponse builds an error envelope with a localized user message.
// lang is the user's normalized language ("en" or "ru").
func NewErrorResponse(code ErrorCode, techMessage, lang string, meta Meta) *ErrorResponse {
	return &ErrorResponse{
		Code:        code,
		UserMessage: userMessage(code, lang),
		TechMessage: techMessage,
		Retryable:   code.Retryable(),
		Meta:        meta,
	}
}

func userMessage(code ErrorCode, lang string) string {
	ru := lang == "ru"
	switch code {
	case CodeValidationFailed:
		if ru {
			return "Запрос не прошёл проверку. Проверьте команду и аргументы."
		}
		return "The request failed validation. Check the command and its arguments."
	case CodeNoData:
		if ru {
			return "Ничего не найдено. Попробуйте расширить запрос или период."
		}
		return "Nothing found. Try a broader query or a wider time window."
	case CodeBudgetExceeded:
		if ru {
			return "Лимит запроса исчерпан. Попробуйте позже или упростите запрос."
		}
		return "The request budget is exhausted. Try again later or simplify the query."
	case CodeModelUnavailable:
		if ru {
			return "Модели временно недоступны. Повторите попытку."
		}
		return "Models are temporarily unavailable. Please retry."
	default:
		if ru {
			return "Внутренняя ошибка. Повторите попытку."
		}
		return "Internal error. Please retry."
	}
}
