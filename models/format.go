package models

import (
	"errors"
	"fmt"
	"strings"
)

// Format определяет стратегию составления пар и правила выбывания.
type Format string

const (
	FormatSwiss             Format = "swiss"
	FormatRoundRobin        Format = "round_robin"
	FormatSingleElimination Format = "single_elimination"
	FormatDoubleElimination Format = "double_elimination"
)

var ErrUnknownFormat = errors.New("unknown tournament format")

var allFormats = []Format{
	FormatSwiss,
	FormatRoundRobin,
	FormatSingleElimination,
	FormatDoubleElimination,
}

// ParseFormat принимает "round-robin", "Round Robin" и т.п.
func ParseFormat(s string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, f := range allFormats {
		if string(f) == normalized {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) IsValid() bool {
	for _, known := range allFormats {
		if f == known {
			return true
		}
	}
	return false
}

func (f Format) IsElimination() bool {
	return f == FormatSingleElimination || f == FormatDoubleElimination
}

func (f Format) AllowsDraws() bool {
	return f.IsValid() && !f.IsElimination()
}

func (f Format) String() string {
	return string(f)
}
