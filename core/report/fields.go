package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
)

var (
	errInvalidFlag         = errors.New("must be true or false")
	errInvalidFeedbackList = errors.New("invalid feedback list format")
)

// Flag is a boolean that also accepts the strings "true" and "false", as sent by multipart forms.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return f.UnmarshalParam(s)
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return errInvalidFlag
	}
	*f = Flag(b)
	return nil
}

func (f *Flag) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*f = false
		return nil
	}
	b, err := strconv.ParseBool(param)
	if err != nil {
		return errInvalidFlag
	}
	*f = Flag(b)
	return nil
}

// StringList accepts a JSON array or a comma separated string.
type StringList []string

func splitList(s string) StringList {
	list := make(StringList, 0)
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = splitList(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	list := make(StringList, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	*l = list
	return nil
}

func (l *StringList) UnmarshalParam(param string) error {
	*l = splitList(param)
	return nil
}

// Feedback is one free form entry of a project's feedback list.
type Feedback map[string]interface{}

// FeedbackList accepts a JSON array or a string holding one.
type FeedbackList []Feedback

func feedbackListError() error {
	return core.NewValidationError(errInvalidFeedbackList, core.FieldError{Field: "feedbackList", Error: errInvalidFeedbackList.Error()})
}

func (l *FeedbackList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return feedbackListError()
		}
		return l.UnmarshalParam(s)
	}
	var items []Feedback
	if err := json.Unmarshal(data, &items); err != nil {
		return feedbackListError()
	}
	*l = items
	return nil
}

func (l *FeedbackList) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*l = FeedbackList{}
		return nil
	}
	var items []Feedback
	if err := json.Unmarshal([]byte(param), &items); err != nil {
		return feedbackListError()
	}
	*l = items
	return nil
}
