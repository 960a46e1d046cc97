package config

import "time"

// windowTable is the fixed grammar of recognized retrieval windows.
// "1d" is an alias of "24h"; calendar units use civil approximations.
var windowTable = map[string]time.Duration{
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"2w":  14 * 24 * time.Hour,
	"1m":  30 * 24 * time.Hour,
	"3m":  90 * 24 * time.Hour,
	"6m":  180 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// WindowLadder is the ordered expansion ladder walked when retrieval
// comes back empty. "1d" is excluded as an alias of "24h".
var WindowLadder = []string{"6h", "12h", "24h", "3d", "1w", "2w", "1m", "3m", "6m", "1y"}

// ParseWindow resolves a window token to its duration.
func ParseWindow(token string) (time.Duration, bool) {
	d, ok := windowTable[token]
	return d, ok
}

// NextWindows returns up to maxSteps ladder entries strictly wider than
// the given window token.
func NextWindows(current string, maxSteps int) []string {
	cur, ok := windowTable[current]
	if !ok {
		return nil
	}
	var out []string
	for _, step := range WindowLadder {
		if windowTable[step] > cur {
			out = append(out, step)
			if len(out) == maxSteps {
				break
			}
		}
	}
	return out
}
