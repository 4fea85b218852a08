// Package pgn turns PGN text into games expressed as UCI move lists.
package pgn

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/notnil/chess"
)

// StandardFEN is the regular starting position
const StandardFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	// ErrNoGames is returned when the text holds no game at all
	ErrNoGames = errors.New("pgn contains no games")
	// ErrInvalidPGN wraps scanner and move decoding failures
	ErrInvalidPGN = errors.New("invalid pgn")
)

// Game is one parsed game. Moves and SAN are index-aligned.
type Game struct {
	Headers map[string]string
	// StartFEN is empty for games starting from the standard position
	StartFEN string
	Moves    []string
	SAN      []string
}

// Header returns a header value, or fallback when it is missing or blank
func (g *Game) Header(key, fallback string) string {
	if v := strings.TrimSpace(g.Headers[key]); v != "" && v != "?" {
		return v
	}

	return fallback
}

// InitialFEN returns the position the game starts from
func (g *Game) InitialFEN() string {
	if g.StartFEN != "" {
		return g.StartFEN
	}

	return StandardFEN
}

// Parse reads every game in text, in order
func Parse(text string) ([]Game, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoGames
	}

	scanner := chess.NewScanner(strings.NewReader(text))
	games := []Game{}

	for scanner.Scan() {
		game, err := convert(scanner.Next())
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", len(games)+1, err)
		}

		games = append(games, game)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPGN, err)
	}

	if len(games) == 0 {
		return nil, ErrNoGames
	}

	return games, nil
}

func convert(g *chess.Game) (Game, error) {
	out := Game{Headers: make(map[string]string)}

	for _, tp := range g.TagPairs() {
		out.Headers[tp.Key] = tp.Value
	}

	positions := g.Positions()
	moves := g.Moves()

	if len(positions) < len(moves)+1 {
		return out, fmt.Errorf("%w: %d moves but %d positions", ErrInvalidPGN, len(moves), len(positions))
	}

	if _, ok := out.Headers["FEN"]; ok {
		out.StartFEN = positions[0].String()
	}

	out.Moves = make([]string, 0, len(moves))
	out.SAN = make([]string, 0, len(moves))

	for i, m := range moves {
		out.Moves = append(out.Moves, chess.UCINotation{}.Encode(positions[i], m))
		out.SAN = append(out.SAN, chess.AlgebraicNotation{}.Encode(positions[i], m))
	}

	return out, nil
}
