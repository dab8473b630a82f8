package chessdto

// CommandType names an inbound client command.
type CommandType string

const (
	CommandPlay        CommandType = "play"
	CommandCancel      CommandType = "cancel"
	CommandMove        CommandType = "move"
	CommandOfferDraw   CommandType = "offerDraw"
	CommandRespondDraw CommandType = "respondDraw"
	CommandResign      CommandType = "resign"
)

// Command is the single envelope a client sends. GameID may be omitted; the server
// then uses the sender's live game.
type Command struct {
	Type   CommandType `json:"type"`
	GameID string      `json:"gameId,omitempty"`
	Move   string      `json:"move,omitempty"`
	Accept bool        `json:"accept,omitempty"`
}

const CodeBadCommand = "bad_command"

var ErrBadCommand = DomainError{Code: CodeBadCommand, Message: "unknown or malformed command"}
