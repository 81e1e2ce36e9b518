package certificates

import "errors"

var (
	ErrInvalidRequest      = errors.New("participantId, examId and attemptId are required")
	ErrAttemptNotEligible  = errors.New("attempt not found or not passed")
	ErrTemplateUnavailable = errors.New("certificate template unavailable")
	ErrUploadFailed        = errors.New("certificate upload failed")
)

// user-facing messages for the failure response
const (
	msgAttemptNotEligible = "Nie znaleziono zaliczonego podejścia do egzaminu. Certyfikat nie może zostać wygenerowany."
	msgUploadFailed       = "Nie udało się zapisać certyfikatu. Spróbuj ponownie później."
	msgInvalidRequest     = "Brak wymaganych danych: participantId, examId i attemptId."
	msgGenerated          = "Certyfikat został wygenerowany pomyślnie."
	msgAlreadyExists      = "Certyfikat dla tego egzaminu już istnieje."
)
