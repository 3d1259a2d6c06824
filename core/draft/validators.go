package draft

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rotaract/reportdesk/core"
)

var (
	requiredTag = "required"

	isDraftTag  = "isdraft"
	isDraftText = "isDraft must be true"
)

// InitValidators registers the draft validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(meetingDraftStructValidation, SaveMeetingDraft{})
	validate.RegisterStructValidation(projectDraftStructValidation, SaveProjectDraft{})
	core.RegisterCustomTranslation(validate, translator, isDraftTag, isDraftText)
}

func meetingDraftStructValidation(sl validator.StructLevel) {
	d, ok := sl.Current().Interface().(SaveMeetingDraft)
	if !ok {
		return
	}
	if !d.IsDraft {
		sl.ReportError(d.IsDraft, "isDraft", "IsDraft", isDraftTag, "")
	}
	if strings.TrimSpace(d.MeetingType) == "" {
		sl.ReportError(d.MeetingType, "meetingType", "MeetingType", requiredTag, "")
	}
}

func projectDraftStructValidation(sl validator.StructLevel) {
	d, ok := sl.Current().Interface().(SaveProjectDraft)
	if !ok {
		return
	}
	if !d.IsDraft {
		sl.ReportError(d.IsDraft, "isDraft", "IsDraft", isDraftTag, "")
	}
	if strings.TrimSpace(d.ProjectName) == "" {
		sl.ReportError(d.ProjectName, "projectName", "ProjectName", requiredTag, "")
	}
}
