package chessdto

// DomainError is a classified, user-facing failure. Values are comparable, so callers
// can match a wrapped error with errors.Is against the sentinels below.
type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "chess service error"
}

// Is matches on Code so a sentinel still matches after its message has been tailored.
func (e DomainError) Is(target error) bool {
	t, ok := target.(DomainError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

const (
	CodeNoGame             = "no_game"
	CodeNotParticipant     = "not_participant"
	CodeNotYourTurn        = "not_your_turn"
	CodeAlreadyFinished    = "already_finished"
	CodeBadNotation        = "bad_notation"
	CodeIllegalMove        = "illegal_move"
	CodeDrawAlreadyOffered = "draw_already_offered"
	CodeNoDrawOffer        = "no_draw_offer"
	CodeOwnDrawOffer       = "own_draw_offer"
	CodeAlreadyInGame      = "already_in_game"
	CodeInternal           = "internal"
)

var (
	ErrNoGame             = DomainError{Code: CodeNoGame, Message: "no such game"}
	ErrNotParticipant     = DomainError{Code: CodeNotParticipant, Message: "you are not playing in this game"}
	ErrNotYourTurn        = DomainError{Code: CodeNotYourTurn, Message: "it is not your turn"}
	ErrAlreadyFinished    = DomainError{Code: CodeAlreadyFinished, Message: "the game is already finished"}
	ErrBadNotation        = DomainError{Code: CodeBadNotation, Message: "moves look like e2e4 or e7e8q"}
	ErrIllegalMove        = DomainError{Code: CodeIllegalMove, Message: "illegal move"}
	ErrDrawAlreadyOffered = DomainError{Code: CodeDrawAlreadyOffered, Message: "a draw offer is already pending"}
	ErrNoDrawOffer        = DomainError{Code: CodeNoDrawOffer, Message: "there is no draw offer to answer"}
	ErrOwnDrawOffer       = DomainError{Code: CodeOwnDrawOffer, Message: "you cannot answer your own draw offer"}
	ErrAlreadyInGame      = DomainError{Code: CodeAlreadyInGame, Message: "you already have a game in progress"}
	ErrInternal           = DomainError{Code: CodeInternal, Message: "internal error", Retryable: true}
)
