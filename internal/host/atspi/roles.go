package atspi

import "go.klb.dev/simplecopy/internal/host"

// AT-SPI role numbers (AtspiRole).
const (
	roleFrame           = 23
	roleListItem        = 32
	rolePasswordText    = 40
	roleText            = 61
	roleWindow          = 69
	roleParagraph       = 73
	roleApplication     = 75
	roleEntry           = 79
	roleDocumentFrame   = 82
	roleLink            = 88
	roleTreeItem        = 91
	roleDocSpreadsheet  = 92
	roleDocPresentation = 93
	roleDocText         = 94
	roleDocWeb          = 95
	roleDocEmail        = 96
)

func mapRole(r uint32) host.Role {
	switch r {
	case roleLink:
		return host.RoleLink
	case roleEntry, rolePasswordText:
		return host.RoleEditableText
	case roleText, roleParagraph:
		return host.RoleText
	case roleDocumentFrame, roleDocSpreadsheet, roleDocPresentation, roleDocText, roleDocWeb, roleDocEmail:
		return host.RoleDocument
	case roleListItem:
		return host.RoleListItem
	case roleTreeItem:
		return host.RoleTreeItem
	case roleFrame, roleWindow:
		return host.RoleWindow
	case roleApplication:
		return host.RoleApplication
	default:
		return host.RoleUnknown
	}
}

// stateEditable is the AT-SPI EDITABLE state bit.
const stateEditable = 7

// hasState tests bit n of a GetState reply, which packs the state set into
// 32-bit words, lowest word first.
func hasState(words []uint32, n uint) bool {
	w := n / 32
	if int(w) >= len(words) {
		return false
	}
	return words[w]&(1<<(n%32)) != 0
}
