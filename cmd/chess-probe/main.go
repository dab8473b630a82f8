package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-chess-server/internal/gateway"
	"github.com/park285/cheese-chess-server/pkg/chessdto"
	"github.com/urfave/cli/v3"
)

// chess-probe connects as one player, joins matchmaking and prints every event it receives.
func main() {
	cmd := &cli.Command{
		Name:  "chess-probe",
		Usage: "connect to a chess server as a player and print its events",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Sources: cli.EnvVars("CHESS_WS_URL")},
			&cli.StringFlag{Name: "user", Required: true, Sources: cli.EnvVars("X_USER_ID")},
			&cli.BoolFlag{Name: "play", Usage: "join the matchmaking queue after connecting"},
			&cli.StringSliceFlag{Name: "move", Usage: "coordinate moves to send once a game starts, e.g. e2e4"},
			&cli.DurationFlag{Name: "observe", Value: 10 * time.Second, Usage: "how long to stay connected"},
		},
		Action: probe,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func probe(ctx context.Context, cmd *cli.Command) error {
	client := gateway.NewClient(cmd.String("url"), cmd.String("user"), 5)
	client.OnStateChange(func(state gateway.ConnState) {
		log.Printf("WS state: %s", state)
	})

	started := make(chan chessdto.Event, 1)
	client.OnEvent(func(ev chessdto.Event) {
		switch ev.Type {
		case chessdto.EventGameStarted, chessdto.EventGameState:
			fmt.Printf("%s game=%s color=%s opponent=%s turn=%s\n", ev.Type, ev.GameID, ev.Color, ev.Opponent, ev.Turn)
			fmt.Println(strings.Join(ev.Board, "\n"))
			select {
			case started <- ev:
			default:
			}
		case chessdto.EventMove:
			fmt.Printf("move %s by %s, turn=%s clocks=%+v\n", ev.Notation, ev.By, ev.Turn, ev.Clocks)
		case chessdto.EventGameOver:
			fmt.Printf("gameOver result=%s reason=%q\n", ev.Result, ev.Reason)
		case chessdto.EventError:
			fmt.Printf("error code=%s message=%q\n", ev.Code, ev.Message)
		default:
			fmt.Printf("%s %s\n", ev.Type, ev.Message)
		}
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Connect(cctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close(context.Background())

	if cmd.Bool("play") {
		if err := client.Send(ctx, chessdto.Command{Type: chessdto.CommandPlay}); err != nil {
			return err
		}
	}

	deadline := time.NewTimer(cmd.Duration("observe"))
	defer deadline.Stop()
	if moves := cmd.StringSlice("move"); len(moves) > 0 {
		select {
		case ev := <-started:
			for _, mv := range moves {
				if err := client.Send(ctx, chessdto.Command{Type: chessdto.CommandMove, GameID: ev.GameID, Move: mv}); err != nil {
					return err
				}
			}
		case <-deadline.C:
			return nil
		}
	}
	<-deadline.C
	return nil
}
