package domain

import "time"

// ChessProfile is a player's rating record.
type ChessProfile struct {
	PlayerID     string
	Rating       int
	GamesPlayed  int
	Wins         int
	Losses       int
	Draws        int
	Streak       int
	StreakType   string
	LastGameID   string
	LastPlayedAt time.Time
	UpdatedAt    time.Time
	CreatedAt    time.Time
}
