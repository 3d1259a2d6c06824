package draft

import (
	"time"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/sequence"
)

var (
	MeetingDrafts = report.Kind{
		Category: sequence.MeetingDraft, Resource: "meeting draft",
		IDField: "draftId", LabelField: "meetingType",
	}
	ProjectDrafts = report.Kind{
		Category: sequence.ProjectDraft, Resource: "project draft",
		IDField: "draftId", LabelField: "projectName",
	}
)

type MeetingDraft struct {
	report.Meta         `bson:",inline"`
	DraftID             string `json:"draftId" bson:"draftId"`
	report.MeetingInput `bson:",inline"`
}

func (d MeetingDraft) Identifier() string { return d.DraftID }
func (d MeetingDraft) Label() string      { return d.MeetingType }

type ProjectDraft struct {
	report.Meta         `bson:",inline"`
	DraftID             string `json:"draftId" bson:"draftId"`
	report.ProjectInput `bson:",inline"`
}

func (d ProjectDraft) Identifier() string { return d.DraftID }
func (d ProjectDraft) Label() string      { return d.ProjectName }

// SaveMeetingDraft creates a meeting draft, or updates the caller's draft DraftID when set.
type SaveMeetingDraft struct {
	DraftID string `json:"draftId" form:"draftId"`
	report.MeetingInput
}

// SaveProjectDraft creates a project draft, or updates the caller's draft DraftID when set.
type SaveProjectDraft struct {
	DraftID string `json:"draftId" form:"draftId"`
	report.ProjectInput
}

// cleanDraftID maps the placeholders sent by forms for "no draft yet" to "".
func cleanDraftID(id string) string {
	id = core.CleanString(id)
	if id == "null" || id == "undefined" {
		return ""
	}
	return id
}

// Listing is the drafts of a user along with the time each one expires.
type Listing[T report.Record] struct {
	Drafts      []T
	ExpiryDates []time.Time
}
