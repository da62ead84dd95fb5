// internal/domain/errors.go
package domain

// Error описывает ошибку бизнес-логики каталога.
// ID и Message стабильны и отдаются клиенту как есть.
type Error struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is сравнивает ошибки по ID, поэтому errors.Is(err, ErrValidationFailed)
// срабатывает и для ошибок валидации с уточненным сообщением.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.ID == e.ID
}

var (
	ErrEmpty              = &Error{ID: 1, Message: "Empty List"}
	ErrNotFound           = &Error{ID: 2, Message: "Entity not found"}
	ErrNotExists          = &Error{ID: 3, Message: "Entity doesn't exists"}
	ErrAlreadyExists      = &Error{ID: 4, Message: "Entity already exists"}
	ErrIDCannotChange     = &Error{ID: 5, Message: "ID key cannot be changed"}
	ErrCannotParseID      = &Error{ID: 6, Message: "Error parsing String id to ObjectId (id not valid)"}
	ErrImdbIDAlreadyInUse = &Error{ID: 7, Message: "The imdbId passed is already in use"}
	ErrCannotParseJSON    = &Error{ID: 8, Message: "Cannot parse JSON Patch, change JSON object"}
	ErrValidationFailed   = &Error{ID: 9, Message: "Validation failed, check that the fields are not empty or null"}
)
