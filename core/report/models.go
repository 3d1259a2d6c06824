package report

import (
	"time"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/sequence"
)

// Kind describes how a record type is stored and searched.
type Kind struct {
	Category sequence.Category
	Resource string
	// IDField is the document field holding the human readable identifier.
	IDField string
	// LabelField is the main free text field, matched by searches.
	LabelField string
	// SearchID adds the identifier to the searched fields.
	SearchID bool
}

var (
	MeetingReports = Kind{
		Category: sequence.MeetingReport, Resource: "meeting report",
		IDField: "meetingId", LabelField: "meetingType", SearchID: true,
	}
	ProjectReports = Kind{
		Category: sequence.ProjectReport, Resource: "project report",
		IDField: "projectId", LabelField: "projectName", SearchID: true,
	}
	MouRecords = Kind{
		Category: sequence.MouRecord, Resource: "mou",
		IDField: "mouId", LabelField: "sponsorName",
	}
)

// Record is implemented by every persisted report and draft.
type Record interface {
	Identifier() string
	Owner() string
	Label() string
	Created() time.Time
	Metadata() Meta
}

// RecordPtr is the pointer form of a Record. Stores use it to restore the server-set Meta.
type RecordPtr[T any] interface {
	*T
	Record
	SetMeta(m Meta)
}

type (
	Finance struct {
		Income  float64 `json:"income" form:"income" bson:"income" validate:"gte=0"`
		Expense float64 `json:"expense" form:"expense" bson:"expense" validate:"gte=0"`
		Profit  float64 `json:"profit" form:"profit" bson:"profit" validate:"gte=0"`
		Loss    float64 `json:"loss" form:"loss" bson:"loss" validate:"gte=0"`
	}

	Attendance struct {
		ActiveHomeClubMembers    int `json:"activeHomeClubMembers" form:"activeHomeClubMembers" bson:"activeHomeClubMembers" validate:"gte=0"`
		GuestHomeClubMembers     int `json:"guestHomeClubMembers" form:"guestHomeClubMembers" bson:"guestHomeClubMembers" validate:"gte=0"`
		DistrictCouncilMembers   int `json:"districtCouncilMembers" form:"districtCouncilMembers" bson:"districtCouncilMembers" validate:"gte=0"`
		Rotarians                int `json:"rotarians" form:"rotarians" bson:"rotarians" validate:"gte=0"`
		Alumnus                  int `json:"alumnus" form:"alumnus" bson:"alumnus" validate:"gte=0"`
		Interactors              int `json:"interactors" form:"interactors" bson:"interactors" validate:"gte=0"`
		OtherGuests              int `json:"otherGuests" form:"otherGuests" bson:"otherGuests" validate:"gte=0"`
		OtherClubMembers         int `json:"otherClubMembers" form:"otherClubMembers" bson:"otherClubMembers" validate:"gte=0"`
		OtherPis                 int `json:"otherPis" form:"otherPis" bson:"otherPis" validate:"gte=0"`
		OtherDistrictRotaractors int `json:"otherDistrictRotaractors" form:"otherDistrictRotaractors" bson:"otherDistrictRotaractors" validate:"gte=0"`
		TotalMembers             int `json:"totalMembers" form:"totalMembers" bson:"totalMembers" validate:"gte=0"`
	}

	Media struct {
		AttendanceImageURL string `json:"attendanceImageUrl" form:"attendanceImageUrl" bson:"attendanceImageUrl"`
		CoverImageURL      string `json:"coverImageUrl" form:"coverImageUrl" bson:"coverImageUrl"`
		SupportDocumentURL string `json:"supportDocumentUrl" form:"supportDocumentUrl" bson:"supportDocumentUrl"`
	}

	// Meta is set by the server on every record.
	Meta struct {
		ID          string    `json:"_id" bson:"_id"`
		SubmittedBy string    `json:"submittedBy" bson:"submittedBy"`
		CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
	}
)

func (m Meta) Owner() string      { return m.SubmittedBy }
func (m Meta) Created() time.Time { return m.CreatedAt }
func (m Meta) Metadata() Meta     { return m }
func (m *Meta) SetMeta(meta Meta) { *m = meta }

// MeetingInput holds the fields of a meeting report form.
type MeetingInput struct {
	FacultyName    string `json:"facultyName" form:"facultyName" bson:"facultyName"`
	Venue          string `json:"venue" form:"venue" bson:"venue"`
	MeetingType    string `json:"meetingType" form:"meetingType" bson:"meetingType"`
	StartDate      string `json:"startDate" form:"startDate" bson:"startDate"`
	EndDate        string `json:"endDate" form:"endDate" bson:"endDate"`
	MeetingSummary string `json:"meetingSummary" form:"meetingSummary" bson:"meetingSummary"`
	Finance        `bson:",inline"`
	Attendance     `bson:",inline"`
	Media          `bson:",inline"`
	IsDraft        Flag   `json:"isDraft" form:"isDraft" bson:"isDraft"`
	UserRole       string `json:"userRole" form:"userRole" bson:"userRole"`
}

func (in *MeetingInput) Clean() {
	in.FacultyName = core.CleanString(in.FacultyName)
	in.Venue = core.CleanString(in.Venue)
	in.MeetingType = core.CleanString(in.MeetingType)
	in.StartDate = core.CleanString(in.StartDate)
	in.EndDate = core.CleanString(in.EndDate)
	in.UserRole = core.CleanString(in.UserRole)
}

// NewMeetingReport is the validated submission of a meeting report.
type NewMeetingReport struct {
	MeetingInput
}

type MeetingReport struct {
	Meta         `bson:",inline"`
	MeetingID    string `json:"meetingId" bson:"meetingId"`
	MeetingInput `bson:",inline"`
	Status       Status `json:"status" bson:"status"`
}

func (r MeetingReport) Identifier() string { return r.MeetingID }
func (r MeetingReport) Label() string      { return r.MeetingType }

// ProjectInput holds the fields of a project report form.
type ProjectInput struct {
	ProjectName         string `json:"projectName" form:"projectName" bson:"projectName"`
	Venue               string `json:"venue" form:"venue" bson:"venue"`
	ProjectMode         string `json:"projectMode" form:"projectMode" bson:"projectMode"`
	StartDate           string `json:"startDate" form:"startDate" bson:"startDate"`
	EndDate             string `json:"endDate" form:"endDate" bson:"endDate"`
	Avenue1             string `json:"avenue1" form:"avenue1" bson:"avenue1"`
	Avenue2             string `json:"avenue2" form:"avenue2" bson:"avenue2"`
	IsDraft             Flag   `json:"isDraft" form:"isDraft" bson:"isDraft"`
	IsAnInstallation    Flag   `json:"isAnInstallation" form:"isAnInstallation" bson:"isAnInstallation"`
	IsFlagship          Flag   `json:"isFlagship" form:"isFlagship" bson:"isFlagship"`
	IsJointProject      Flag   `json:"isJointProject" form:"isJointProject" bson:"isJointProject"`
	JointProjectPartner string `json:"jointProjectPartner" form:"jointProjectPartner" bson:"jointProjectPartner"`
	ProjectAim          string `json:"projectAim" form:"projectAim" bson:"projectAim"`
	ProjectGroundwork   string `json:"projectGroundwork" form:"projectGroundwork" bson:"projectGroundwork"`
	ProjectSummary      string `json:"projectSummary" form:"projectSummary" bson:"projectSummary"`
	Finance             `bson:",inline"`
	Attendance          `bson:",inline"`
	Media               `bson:",inline"`
	FeedbackList        FeedbackList `json:"feedbackList" form:"feedbackList" bson:"feedbackList"`
	ChairPersons        StringList   `json:"chairPersons" form:"chairPersons" bson:"chairPersons"`
}

const noAvenue = "-"

func (in *ProjectInput) Clean() {
	in.ProjectName = core.CleanString(in.ProjectName)
	in.Venue = core.CleanString(in.Venue)
	in.ProjectMode = core.CleanString(in.ProjectMode)
	in.StartDate = core.CleanString(in.StartDate)
	in.EndDate = core.CleanString(in.EndDate)
	in.Avenue1 = core.CleanString(in.Avenue1)
	in.Avenue2 = core.CleanString(in.Avenue2)
	if in.Avenue2 == "" || core.CleanString(in.Avenue2, true /* lower */) == "select" {
		in.Avenue2 = noAvenue
	}
	in.JointProjectPartner = core.CleanString(in.JointProjectPartner)
	if in.FeedbackList == nil {
		in.FeedbackList = FeedbackList{}
	}
	if in.ChairPersons == nil {
		in.ChairPersons = StringList{}
	}
}

// NewProjectReport is the validated submission of a project report.
type NewProjectReport struct {
	ProjectInput
}

type ProjectReport struct {
	Meta              `bson:",inline"`
	ProjectID         string `json:"projectId" bson:"projectId"`
	ProjectInput      `bson:",inline"`
	FinanceExcelSheet string `json:"financeExcelSheet" bson:"financeExcelSheet"`
	Status            Status `json:"status" bson:"status"`
}

func (r ProjectReport) Identifier() string { return r.ProjectID }
func (r ProjectReport) Label() string      { return r.ProjectName }

// MouInput holds the fields of a memorandum of understanding with a sponsor.
type MouInput struct {
	SponsorName                  string  `json:"sponsorName" form:"sponsorName" bson:"sponsorName" validate:"required,notblank"`
	SponsorAmount                float64 `json:"sponsorAmount" form:"sponsorAmount" bson:"sponsorAmount" validate:"gte=0"`
	DeliverablesOfferedBySponsor string  `json:"deliverablesOfferedBySponsor" form:"deliverablesOfferedBySponsor" bson:"deliverablesOfferedBySponsor"`
	DeliverablesOfferedByClub    string  `json:"deliverablesOfferedByClub" form:"deliverablesOfferedByClub" bson:"deliverablesOfferedByClub"`
	DateOfSigning                string  `json:"dateOfSigning" form:"dateOfSigning" bson:"dateOfSigning" validate:"required"`
}

func (in *MouInput) Clean() {
	in.SponsorName = core.CleanString(in.SponsorName)
	in.DeliverablesOfferedBySponsor = core.CleanString(in.DeliverablesOfferedBySponsor)
	in.DeliverablesOfferedByClub = core.CleanString(in.DeliverablesOfferedByClub)
	in.DateOfSigning = core.CleanString(in.DateOfSigning)
}

type MouRecord struct {
	Meta         `bson:",inline"`
	MouID        string `json:"mouId" bson:"mouId"`
	MouInput     `bson:",inline"`
	MouPdfUpload string `json:"mouPdfUpload" bson:"mouPdfUpload"`
}

func (r MouRecord) Identifier() string { return r.MouID }
func (r MouRecord) Label() string      { return r.SponsorName }

// Filter selects a page of records.
type Filter struct {
	SubmittedBy string
	// Search is matched case-insensitively as a substring of the label (and identifier when the Kind allows it).
	Search string
	Page   core.Page
}

// ListQuery is what a caller asks a listing for.
type ListQuery struct {
	UserID string `query:"userId"`
	Search string `query:"searchQuery"`
	Page   int64  `query:"page"`
	Limit  int64  `query:"limit"`
}

func (q ListQuery) filter(actor string) Filter {
	owner := core.CleanString(q.UserID)
	if owner == "" {
		owner = actor
	}
	return Filter{
		SubmittedBy: owner,
		Search:      core.CleanString(q.Search),
		Page:        core.NewPage(q.Page, q.Limit),
	}
}
