// Package puzzle flattens discovered tactics into delivery-ready records with a
// content-derived identity.
package puzzle

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ethpandaops/tactix/pkg/tactics"
	"github.com/samber/lo"
)

// separator joins the id fields; it cannot occur in a FEN or in move notation
const separator = "\x00"

// Record is one puzzle as the ingestion endpoint expects it.
// Moves is nil, and encodes as null, when the tactic has no solution line.
type Record struct {
	ID          string  `json:"id"`
	FEN         string  `json:"fen"`
	Moves       *string `json:"moves"`
	Rating      string  `json:"rating"`
	DirectStart string  `json:"directStart"`
}

// ID derives the puzzle id from its content. Identical fen and moves always give the same
// id, in any process.
func ID(fen string, moves *string) string {
	h := sha256.New()
	h.Write([]byte(fen))
	h.Write([]byte(separator))

	if moves != nil {
		h.Write([]byte(*moves))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Extractor converts tactics into records
type Extractor struct {
	cfg *Config
}

// NewExtractor creates an extractor
func NewExtractor(cfg *Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract flattens one tactic
func (e *Extractor) Extract(t *tactics.Tactic) Record {
	fen := t.FEN
	positions := t.Positions

	if e.cfg.IgnoreFirstMove && len(positions) > 1 {
		fen = positions[1].FEN
		positions = positions[1:]
	}

	var moves *string

	notation := lo.FilterMap(positions, func(p tactics.Position, _ int) (string, bool) {
		move := strings.TrimSpace(p.Move)

		return move, move != ""
	})
	if len(notation) > 0 {
		joined := strings.Join(notation, ",")
		moves = &joined
	}

	return Record{
		ID:          ID(fen, moves),
		FEN:         fen,
		Moves:       moves,
		Rating:      e.rating(t),
		DirectStart: strconv.FormatBool(e.cfg.IgnoreFirstMove),
	}
}

// ExtractAll flattens tactics in order
func (e *Extractor) ExtractAll(found []*tactics.Tactic) []Record {
	return lo.Map(found, func(t *tactics.Tactic, _ int) Record {
		return e.Extract(t)
	})
}

func (e *Extractor) rating(t *tactics.Tactic) string {
	key := "BlackElo"
	if t.Solver.IsWhite() {
		key = "WhiteElo"
	}

	if elo, err := strconv.Atoi(strings.TrimSpace(t.Headers[key])); err == nil && elo > 0 {
		return strconv.Itoa(elo)
	}

	return strconv.Itoa(e.cfg.DefaultRating)
}
