// Package render draws boards as plain text with colored piece letters
package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/notnil/chess"
)

var pieceLetters = map[chess.PieceType]string{
	chess.King:   "k",
	chess.Queen:  "q",
	chess.Rook:   "r",
	chess.Bishop: "b",
	chess.Knight: "n",
	chess.Pawn:   "p",
}

// Renderer draws an 8x8 board, rank 8 first. White pieces are uppercase and
// blue, Black pieces lowercase and red, empty squares are dots.
type Renderer struct {
	white lipgloss.Style
	black lipgloss.Style
	color bool
}

// New creates a renderer whose color support is detected from w.
// With color false pieces are left unstyled.
func New(w io.Writer, color bool) *Renderer {
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		white: r.NewStyle().Foreground(lipgloss.Color("12")),
		black: r.NewStyle().Foreground(lipgloss.Color("9")),
		color: color,
	}
}

// Render returns the board as eight newline separated rows.
func (r *Renderer) Render(b *chess.Board) string {
	var sb strings.Builder
	for rank := chess.Rank8; rank >= chess.Rank1; rank-- {
		for file := chess.FileA; file <= chess.FileH; file++ {
			if file > chess.FileA {
				sb.WriteByte(' ')
			}
			sb.WriteString(r.square(b.Piece(chess.NewSquare(file, rank))))
		}
		if rank > chess.Rank1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (r *Renderer) square(p chess.Piece) string {
	if p == chess.NoPiece {
		return "."
	}
	letter := pieceLetters[p.Type()]
	if p.Color() == chess.White {
		letter = strings.ToUpper(letter)
		if r.color {
			return r.white.Render(letter)
		}
		return letter
	}
	if r.color {
		return r.black.Render(letter)
	}
	return letter
}
