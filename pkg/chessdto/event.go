package chessdto

import "errors"

// EventType names an outbound push event.
type EventType string

const (
	EventGameStarted  EventType = "gameStarted"
	EventGameState    EventType = "gameState"
	EventMove         EventType = "move"
	EventDrawOffered  EventType = "drawOffered"
	EventDrawDeclined EventType = "drawDeclined"
	EventGameOver     EventType = "gameOver"
	EventInfo         EventType = "info"
	EventError        EventType = "error"
)

// Clocks are the remaining times in milliseconds.
type Clocks struct {
	WhiteMs     int64 `json:"whiteMs"`
	BlackMs     int64 `json:"blackMs"`
	IncrementMs int64 `json:"incrementMs"`
}

type CheckFlags struct {
	White bool `json:"white"`
	Black bool `json:"black"`
}

// Event is the single envelope pushed to a player. Only the fields relevant to Type are set.
type Event struct {
	Type   EventType `json:"type"`
	GameID string    `json:"gameId,omitempty"`

	// gameStarted / gameState
	Color    string   `json:"color,omitempty"`
	Opponent string   `json:"opponent,omitempty"`
	Turn     string   `json:"turn,omitempty"`
	Moves    []string `json:"moves,omitempty"`
	DrawBy   string   `json:"drawOfferBy,omitempty"`

	// move / drawOffered / drawDeclined
	By         string      `json:"by,omitempty"`
	Notation   string      `json:"notation,omitempty"`
	CheckFlags *CheckFlags `json:"checkFlags,omitempty"`

	Clocks *Clocks  `json:"clocks,omitempty"`
	Board  []string `json:"board,omitempty"`

	// gameOver
	Result  string `json:"result,omitempty"`
	Reason  string `json:"reason,omitempty"`
	StatsOK *bool  `json:"statsOk,omitempty"`

	// info / error
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func InfoEvent(message string) Event {
	return Event{Type: EventInfo, Message: message}
}

// ErrorEvent converts any error into the structured error response. Unclassified errors
// are reported as internal so infrastructure details never reach a client.
func ErrorEvent(err error) Event {
	var de DomainError
	if errors.As(err, &de) {
		return Event{Type: EventError, Code: de.Code, Message: de.Error()}
	}
	return Event{Type: EventError, Code: ErrInternal.Code, Message: ErrInternal.Message}
}

func GameOverEvent(gameID, result, reason string, statsOK bool) Event {
	ok := statsOK
	return Event{Type: EventGameOver, GameID: gameID, Result: result, Reason: reason, StatsOK: &ok}
}
