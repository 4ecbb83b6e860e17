package pipeline

import (
	"net/http"
	"time"
)

type Status int

const (
	Succeeded Status = iota
	// Rejected means a gate or data check said no; nothing is broken.
	Rejected
	// Failed means the stage could not do its job.
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Outcome is the tagged result every stage returns to its caller.
type Outcome struct {
	Status     Status
	StatusCode int
	Message    string
	Body       any
	Err        error
}

func Success(body any) Outcome {
	return Outcome{Status: Succeeded, StatusCode: http.StatusOK, Body: body}
}

func Rejection(code int, msg string, body any) Outcome {
	return Outcome{Status: Rejected, StatusCode: code, Message: msg, Body: body}
}

func Failure(code int, err error, body any) Outcome {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Status: Failed, StatusCode: code, Message: msg, Body: body, Err: err}
}

func (o Outcome) OK() bool { return o.Status == Succeeded }

// Clock is injected so stage output is reproducible under test.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

func (c Clock) Now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c().UTC()
}

// Timestamp renders the ISO-8601 form written into artifacts.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}
