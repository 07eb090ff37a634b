package domain

import (
	"fmt"
	"strings"
)

// InfoMessageID is the primary key of the single info message row.
const InfoMessageID = 1

// StaleAppMessage is shown to clients that run a build far behind stable.
const StaleAppMessage = "Die Version der App ist ziemlich alt. " +
	"Bitte führe unbedingt ein Update durch, da diese Version bald nicht mehr unterstützt wird! " +
	"https://app.pr0gramm.com"

// InfoMessage is the broadcast shown inside the app. Nil fields are unset.
type InfoMessage struct {
	Message          *string
	MessageID        *string
	EndOfLifeVersion *int
}

// SetText stores message and id, treating blank input as unset.
func (m *InfoMessage) SetText(message, messageID string) {
	m.Message = optionalString(message)
	m.MessageID = optionalString(messageID)
}

// ToggleEndOfLife marks code as end of life, or clears the mark when code
// already carries it.
func (m *InfoMessage) ToggleEndOfLife(code int) {
	if m.EndOfLifeVersion != nil && *m.EndOfLifeVersion == code {
		m.EndOfLifeVersion = nil
		return
	}
	c := code
	m.EndOfLifeVersion = &c
}

// PublicID is the id clients see, namespaced with "info:".
func (m InfoMessage) PublicID() *string {
	if m.MessageID == nil || *m.MessageID == "" {
		return nil
	}
	id := "info:" + *m.MessageID
	return &id
}

// Resolve picks the message for a client. A configured message always wins;
// otherwise clients more than staleThreshold codes behind stable get
// StaleAppMessage.
func (m InfoMessage) Resolve(clientCode, stableCode int, haveClient, haveStable bool, staleThreshold int) *string {
	if m.Message != nil && *m.Message != "" {
		return m.Message
	}
	if haveClient && haveStable && stableCode-clientCode > staleThreshold {
		msg := StaleAppMessage
		return &msg
	}
	return nil
}

// String is used in debug logs.
func (m InfoMessage) String() string {
	return fmt.Sprintf("message=%s id=%s eol=%s", deref(m.Message), deref(m.MessageID), derefInt(m.EndOfLifeVersion))
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%q", *s)
}

func derefInt(i *int) string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d", *i)
}
