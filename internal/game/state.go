package game

// State is the control state of a session
type State int

const (
	AwaitingWhiteInput State = iota
	AwaitingBlackSelection
	GameOver
)

func (s State) String() string {
	switch s {
	case AwaitingWhiteInput:
		return "awaiting_white_input"
	case AwaitingBlackSelection:
		return "awaiting_black_selection"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}
