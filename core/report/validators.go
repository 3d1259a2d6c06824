package report

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rotaract/reportdesk/core"
)

var (
	requiredTag = "required"

	chairPersonsTag  = "chairpersons"
	chairPersonsText = "at least one chair person is required"
)

// projectRequiredFields are the ProjectInput fields a submitted project report cannot leave blank.
var projectRequiredFields = []struct{ json, name string }{
	{"projectName", "ProjectName"},
	{"venue", "Venue"},
	{"projectMode", "ProjectMode"},
	{"startDate", "StartDate"},
	{"endDate", "EndDate"},
	{"avenue1", "Avenue1"},
	{"coverImageUrl", "CoverImageURL"},
	{"attendanceImageUrl", "AttendanceImageURL"},
	{"supportDocumentUrl", "SupportDocumentURL"},
}

// InitValidators registers the report validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(meetingStructValidation, NewMeetingReport{})
	validate.RegisterStructValidation(projectStructValidation, NewProjectReport{})
	core.RegisterCustomTranslation(validate, translator, chairPersonsTag, chairPersonsText)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func meetingStructValidation(sl validator.StructLevel) {
	mr, ok := sl.Current().Interface().(NewMeetingReport)
	if !ok {
		return
	}
	if blank(mr.MeetingType) {
		sl.ReportError(mr.MeetingType, "meetingType", "MeetingType", requiredTag, "")
	}
}

func projectStructValidation(sl validator.StructLevel) {
	pr, ok := sl.Current().Interface().(NewProjectReport)
	if !ok {
		return
	}
	val := reflect.ValueOf(pr.ProjectInput)
	for _, fld := range projectRequiredFields {
		if v := val.FieldByName(fld.name); blank(v.String()) {
			sl.ReportError(v.String(), fld.json, fld.name, requiredTag, "")
		}
	}
	if bool(pr.IsJointProject) && blank(pr.JointProjectPartner) {
		sl.ReportError(pr.JointProjectPartner, "jointProjectPartner", "JointProjectPartner", requiredTag, "")
	}
	if len(pr.ChairPersons) == 0 {
		sl.ReportError(pr.ChairPersons, "chairPersons", "ChairPersons", chairPersonsTag, "")
	}
}
