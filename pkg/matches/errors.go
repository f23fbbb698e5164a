package matches

import "errors"

var (
	// ErrNavigationTimeout means the browser or network did not respond in time.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrPageNotFound means the source site reported the detail page as missing.
	ErrPageNotFound = errors.New("page not found")
	// ErrStructureUnrecognized means a required anchor (scoreboard, card list) was absent.
	// It usually signals an upstream layout change.
	ErrStructureUnrecognized = errors.New("page structure unrecognized")
)
