package lsp

import (
	"encoding/json"
	"fmt"
)

// handleCodeAction handles the textDocument/codeAction request.
func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	actions := s.getCodeActions(params)
	s.sendResponse(msg.ID, actions, nil)
	return nil
}

// getCodeActions offers quick fixes for the diagnostics the client sends
// back. Fixes travel in the diagnostic's data, so nothing is cached here.
func (s *Server) getCodeActions(params CodeActionParams) []CodeAction {
	actions := []CodeAction{}

	if len(params.Context.Only) > 0 {
		wantQuickFix := false
		for _, kind := range params.Context.Only {
			if kind == CodeActionKindQuickFix {
				wantQuickFix = true
				break
			}
		}
		if !wantQuickFix {
			return actions
		}
	}

	for _, diag := range params.Context.Diagnostics {
		if diag.Source != diagnosticSource {
			continue
		}

		var title string
		var edit TextEdit
		switch diag.Code {
		case codeUndefinedWord:
			if diag.Data == nil || diag.Data.Replacement == "" {
				continue
			}
			title = fmt.Sprintf("Replace with '%s'", diag.Data.Replacement)
			edit = TextEdit{Range: diag.Range, NewText: diag.Data.Replacement}
		case codeUnterminatedComment:
			title = "Close comment with ')'"
			edit = TextEdit{Range: Range{Start: diag.Range.End, End: diag.Range.End}, NewText: " )"}
		default:
			continue
		}

		actions = append(actions, CodeAction{
			Title:       title,
			Kind:        CodeActionKindQuickFix,
			Diagnostics: []Diagnostic{diag},
			IsPreferred: true,
			Edit: &WorkspaceEdit{
				Changes: map[string][]TextEdit{
					params.TextDocument.URI: {edit},
				},
			},
		})
	}

	return actions
}
