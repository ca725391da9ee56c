package lsp

import (
	"github.com/leapstack-labs/forthls/pkg/index"
	"github.com/leapstack-labs/forthls/pkg/token"
)

func toPosition(p token.Position) Position {
	return Position{
		Line:      uint32(p.Line),   //nolint:gosec // G115: positions are never negative
		Character: uint32(p.Column), //nolint:gosec // G115: positions are never negative
	}
}

func fromPosition(p Position) token.Position {
	return token.Position{Line: int(p.Line), Column: int(p.Character)}
}

func toRange(r index.Range) Range {
	return Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

// toLocations converts index locations, whose file ids are document URIs.
// The result is never nil so it encodes as an empty JSON array.
func toLocations(locs []index.Location) []Location {
	out := make([]Location, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Location{URI: loc.FileID, Range: toRange(loc.Range)})
	}
	return out
}
