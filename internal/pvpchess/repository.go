package pvpchess

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	_ "github.com/lib/pq"
)

// Repository archives finished games in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an already opened handle.
func NewRepositoryWithDB(db *sql.DB) *Repository { return &Repository{db: db} }

// DB exposes the pool so other Postgres-backed stores can share it.
func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const createGamesTable = `CREATE TABLE IF NOT EXISTS pvp_games (
    game_id       TEXT PRIMARY KEY,
    white_id      TEXT NOT NULL,
    black_id      TEXT NOT NULL,
    time_control  TEXT NOT NULL DEFAULT '',
    rated         BOOLEAN NOT NULL DEFAULT TRUE,
    result        TEXT NOT NULL,
    result_reason TEXT NOT NULL DEFAULT '',
    moves_uci     JSONB NOT NULL DEFAULT '[]',
    moves_san     JSONB NOT NULL DEFAULT '[]',
    pgn           TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL DEFAULT 0
)`

// EnsureSchema creates the archive table when it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, createGamesTable)
	return err
}

// SaveResult upserts a finished game. Ongoing games are ignored.
func (r *Repository) SaveResult(ctx context.Context, g *Game) error {
	if r == nil || r.db == nil || g == nil || !g.IsOver() {
		return nil
	}
	uci := g.Notations()
	san, err := sanMoves(uci)
	if err != nil {
		// keep the archive row; PGN falls back to coordinate notation
		san = uci
	}
	pgnResult := resultToPGN(g.Result)
	pgn := buildPGN(g, san, pgnResult)

	movesUCIRaw, _ := json.Marshal(uci)
	movesSANRaw, _ := json.Marshal(san)
	ended := g.FinishedAt
	if ended.IsZero() {
		ended = g.LastUpdate
	}
	duration := ended.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO pvp_games (
        game_id, white_id, black_id, time_control, rated,
        result, result_reason, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
      ) ON CONFLICT (game_id) DO UPDATE SET
        white_id=EXCLUDED.white_id,
        black_id=EXCLUDED.black_id,
        time_control=EXCLUDED.time_control,
        rated=EXCLUDED.rated,
        result=EXCLUDED.result,
        result_reason=EXCLUDED.result_reason,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		g.ID, g.WhiteID, g.BlackID, g.TimeControl, g.Rated,
		string(g.Result), g.Reason, string(movesUCIRaw), string(movesSANRaw), pgn,
		g.CreatedAt, ended, duration,
	)
	return err
}

// sanMoves replays coordinate moves from the start position and encodes each in SAN.
func sanMoves(uci []string) ([]string, error) {
	game := nchess.NewGame()
	out := make([]string, 0, len(uci))
	for i, mv := range uci {
		pos := game.Position()
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay ply %d (%s): %w", i+1, mv, err)
		}
		moves := game.Moves()
		out = append(out, nchess.AlgebraicNotation{}.Encode(pos, moves[len(moves)-1]))
	}
	return out, nil
}

func resultToPGN(r Result) string {
	switch r {
	case ResultWhiteWin:
		return "1-0"
	case ResultBlackWin:
		return "0-1"
	case ResultDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(g *Game, san []string, pgnResult string) string {
	var b strings.Builder
	date := g.CreatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Arena\"]\n")
	b.WriteString("[Site \"cheese-chess-server\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.WhiteID)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.BlackID)))
	if strings.TrimSpace(g.TimeControl) != "" {
		b.WriteString(fmt.Sprintf("[TimeControl \"%s\"]\n", sanitizePGN(g.TimeControl)))
	}
	if strings.TrimSpace(g.Reason) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.TrimSuffix(g.Reason, "."))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(san); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, san[i]))
		if i+1 < len(san) {
			b.WriteString(" ")
			b.WriteString(san[i+1])
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
