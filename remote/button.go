// Copyright (c) 2025 Darren Soothill
// Licensed under the MIT License

// Package remote defines the remote-control vocabulary understood by the ECP
// keypress endpoint: the fixed set of named buttons and the literal-key
// encoding used for text entry.
//
// These keys require the device to be powered on. For power control prefer
// device.SendPowerCommand(device.Toggle) over pressing PowerOn/PowerOff.
package remote

import (
	"net/url"
	"strings"
)

// Button is a named key on the remote.
type Button int

// Known remote buttons. Comments mark keys that only some devices support.
const (
	Back Button = iota
	Backspace
	ChannelUp   // requires device support
	ChannelDown // requires device support
	Down
	Enter
	FindRemote // requires device support
	Fwd
	Home
	Info
	InputTuner // requires device support
	InputHDMI1 // requires device support
	InputHDMI2 // requires device support
	InputHDMI3 // requires device support
	InputHDMI4 // requires device support
	InputAV1   // requires device support
	InstantReplay
	Left
	Play
	Rev
	Right
	Search
	Select
	Up
	VolumeDown // requires device support
	VolumeMute // requires device support
	VolumeUp   // requires device support
	PowerOff   // requires device support
	PowerOn    // undocumented
)

var buttonNames = [...]string{
	Back:          "Back",
	Backspace:     "Backspace",
	ChannelUp:     "ChannelUp",
	ChannelDown:   "ChannelDown",
	Down:          "Down",
	Enter:         "Enter",
	FindRemote:    "FindRemote",
	Fwd:           "Fwd",
	Home:          "Home",
	Info:          "Info",
	InputTuner:    "InputTuner",
	InputHDMI1:    "InputHDMI1",
	InputHDMI2:    "InputHDMI2",
	InputHDMI3:    "InputHDMI3",
	InputHDMI4:    "InputHDMI4",
	InputAV1:      "InputAV1",
	InstantReplay: "InstantReplay",
	Left:          "Left",
	Play:          "Play",
	Rev:           "Rev",
	Right:         "Right",
	Search:        "Search",
	Select:        "Select",
	Up:            "Up",
	VolumeDown:    "VolumeDown",
	VolumeMute:    "VolumeMute",
	VolumeUp:      "VolumeUp",
	PowerOff:      "PowerOff",
	PowerOn:       "PowerOn",
}

var buttonsByUpper = func() map[string]Button {
	m := make(map[string]Button, len(buttonNames))
	for i, name := range buttonNames {
		m[strings.ToUpper(name)] = Button(i)
	}
	return m
}()

// String returns the canonical spelling used verbatim in keypress URLs
func (b Button) String() string {
	if b < 0 || int(b) >= len(buttonNames) {
		return buttonNames[PowerOn]
	}
	return buttonNames[b]
}

// ParseButton maps a name to a Button case-insensitively. Unknown names map
// to PowerOn.
func ParseButton(s string) Button {
	if b, ok := buttonsByUpper[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return b
	}
	return PowerOn
}

// LookupButton is like ParseButton but reports whether s named a known key.
func LookupButton(s string) (Button, bool) {
	b, ok := buttonsByUpper[strings.ToUpper(strings.TrimSpace(s))]
	return b, ok
}

// Buttons returns every known button in declaration order
func Buttons() []Button {
	all := make([]Button, len(buttonNames))
	for i := range buttonNames {
		all[i] = Button(i)
	}
	return all
}

// KeypressEndpoint returns the ECP endpoint that presses b
func KeypressEndpoint(b Button) string {
	return "keypress/" + b.String()
}

// Literal returns the keypress name that types r: "Lit_" followed by the
// percent-encoded UTF-8 bytes of r. Only A-Z a-z 0-9 - _ . ~ pass through.
func Literal(r rune) string {
	return "Lit_" + strings.ReplaceAll(url.QueryEscape(string(r)), "+", "%20")
}

// LiteralEndpoint returns the ECP endpoint that types r
func LiteralEndpoint(r rune) string {
	return "keypress/" + Literal(r)
}
