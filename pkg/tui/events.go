package tui

import (
	"github.com/gdamore/tcell/v2"
)

// Custom events posted into the tcell loop from other goroutines.

// StoreChangedEvent signals that the message store mutated and the transcript
// needs a redraw.
type StoreChangedEvent struct {
	tcell.EventTime
}

func NewStoreChangedEvent() *StoreChangedEvent {
	return &StoreChangedEvent{EventTime: tcell.EventTime{}}
}

// SessionDoneEvent signals that the live session reached a terminal state.
// Err is nil on success.
type SessionDoneEvent struct {
	tcell.EventTime
	Err error
}

func NewSessionDoneEvent(err error) *SessionDoneEvent {
	return &SessionDoneEvent{EventTime: tcell.EventTime{}, Err: err}
}

// ReportEvent carries the result of an async stats or health fetch.
type ReportEvent struct {
	tcell.EventTime
	Title string
	Body  string
	Err   error
}

func NewReportEvent(title, body string, err error) *ReportEvent {
	return &ReportEvent{EventTime: tcell.EventTime{}, Title: title, Body: body, Err: err}
}

// FlashEvent shows transient feedback in the status bar.
type FlashEvent struct {
	tcell.EventTime
	Text string
}

func NewFlashEvent(text string) *FlashEvent {
	return &FlashEvent{EventTime: tcell.EventTime{}, Text: text}
}

// TickEvent drives spinner animation and flash expiry.
type TickEvent struct {
	tcell.EventTime
}

func NewTickEvent() *TickEvent {
	return &TickEvent{EventTime: tcell.EventTime{}}
}
