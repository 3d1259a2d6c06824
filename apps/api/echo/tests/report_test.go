package tests

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/rotaract/reportdesk/apps/api/echo"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/user"
	"github.com/rotaract/reportdesk/tests"
)

// tickingClock starts at start and moves one second forward on every reading.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

var feb3rd = time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC)

func listPath(base string, params map[string]string) string {
	v := make(url.Values)
	for k, p := range params {
		v.Set(k, p)
	}
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

func createMeeting(t *testing.T, env testEnv, token string, in report.MeetingInput) report.MeetingReport {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/api/v1/rotaract/meeting-reports", token, marchallObj(t, in))
	env.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rep report.MeetingReport
	decode(t, rec, &rep)
	return rep
}

func Test_reportApi_createMeeting(t *testing.T) {
	// the clock starts one second before Feb 3rd so the first submission lands on the boundary
	env := setup(t, tickingClock(feb3rd.Add(-time.Second)))
	usr := env.createUser(t, "member")
	token := getToken(t, env, usr)

	onTime := createMeeting(t, env, token, testutil.MeetingInput("General", "2024-01-25"))
	assert.Equal(t, "RCM20240001", onTime.MeetingID)
	assert.Equal(t, report.StatusOnTime, onTime.Status)
	assert.Equal(t, usr.ID, onTime.SubmittedBy)

	early := createMeeting(t, env, token, testutil.MeetingInput("Board", "2024-02-01"))
	assert.Equal(t, "RCM20240002", early.MeetingID)
	assert.Equal(t, report.StatusEarly, early.Status)

	in := testutil.MeetingInput("General", "2024-01-25")
	in.IsDraft = true
	draft := createMeeting(t, env, token, in)
	assert.Equal(t, report.StatusDraft, draft.Status)

	late := createMeeting(t, env, token, testutil.MeetingInput("General", "not a date"))
	assert.Equal(t, report.StatusLate, late.Status)
	assert.Equal(t, "RCM20240004", late.MeetingID)

	t.Run("invalid", func(t *testing.T) {
		tests := []httpTest{
			{
				name:     "negative income",
				body:     []byte(`{"meetingType":"General","income":-5}`),
				wantCode: http.StatusBadRequest,
			},
			{
				name:     "missing meeting type",
				body:     []byte(`{"venue":"Hall"}`),
				wantCode: http.StatusBadRequest,
			},
			{
				name:     "no token",
				body:     []byte(`{"meetingType":"General"}`),
				wantCode: http.StatusUnauthorized,
				wantData: marchallObj(t, errMissingToken),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tok := token
				if tt.wantCode == http.StatusUnauthorized {
					tok = ""
				}
				req, rec := newAuthRequest(http.MethodPost, "/api/v1/rotaract/meeting-reports", tok, tt.body)
				env.serve(req, rec)
				checkCodeAndData(t, tt, rec)
			})
		}

		// rejected submissions do not consume identifiers
		next := createMeeting(t, env, token, testutil.MeetingInput("General", "2024-01-25"))
		assert.Equal(t, "RCM20240005", next.MeetingID)
	})
}

func Test_reportApi_listMeetings(t *testing.T) {
	env := setup(t, tickingClock(feb3rd))
	usr := env.createUser(t, "member")
	other := env.createUser(t, "other")
	token := getToken(t, env, usr)

	for _, mt := range []string{"General", "Board", "General", "Special"} {
		createMeeting(t, env, token, testutil.MeetingInput(mt, "2024-01-30"))
	}
	createMeeting(t, env, getToken(t, env, other), testutil.MeetingInput("General", "2024-01-30"))

	base := "/api/v1/rotaract/meeting-reports"
	tests := []struct {
		name      string
		params    map[string]string
		wantIDs   []string
		wantPages int64
		wantTotal int64
		wantPage  int64
	}{
		{
			name: "defaults", params: nil,
			wantIDs:   []string{"RCM20240004", "RCM20240003", "RCM20240002", "RCM20240001"},
			wantPages: 1, wantTotal: 4, wantPage: 1,
		},
		{
			name: "paginated", params: map[string]string{"page": "2", "limit": "3"},
			wantIDs:   []string{"RCM20240001"},
			wantPages: 2, wantTotal: 4, wantPage: 2,
		},
		{
			name: "search meeting type", params: map[string]string{"searchQuery": "general"},
			wantIDs:   []string{"RCM20240003", "RCM20240001"},
			wantPages: 1, wantTotal: 2, wantPage: 1,
		},
		{
			name: "search identifier", params: map[string]string{"searchQuery": "rcm20240002"},
			wantIDs:   []string{"RCM20240002"},
			wantPages: 1, wantTotal: 1, wantPage: 1,
		},
		{
			name: "search is literal", params: map[string]string{"searchQuery": "Gen.*"},
			wantIDs:   []string{},
			wantPages: 0, wantTotal: 0, wantPage: 1,
		},
		{
			name: "other user", params: map[string]string{"userId": other.ID},
			wantIDs:   []string{"RCM20240005"},
			wantPages: 1, wantTotal: 1, wantPage: 1,
		},
		{
			name: "page past the end", params: map[string]string{"page": "9"},
			wantIDs:   []string{},
			wantPages: 1, wantTotal: 4, wantPage: 9,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, listPath(base, tt.params), token)
			env.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var data ListingResponse[report.MeetingReport]
			resp := decode(t, rec, &data)
			assert.Equal(t, "Meeting reports retrieved successfully.", resp.Message)

			ids := make([]string, 0, len(data.Data))
			for _, rep := range data.Data {
				ids = append(ids, rep.MeetingID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantPages, data.TotalPages)
			assert.Equal(t, tt.wantTotal, data.TotalReports)
			assert.Equal(t, tt.wantPage, data.CurrentPage)
		})
	}
}

func Test_reportApi_deleteMeeting(t *testing.T) {
	env := setup(t)
	owner := env.createUser(t, "owner")
	intruder := env.createUser(t, "intruder")
	admin := env.createUser(t, "admin", user.AllRoles...)

	first := createMeeting(t, env, getToken(t, env, owner), testutil.MeetingInput("General", "2024-01-30"))
	second := createMeeting(t, env, getToken(t, env, owner), testutil.MeetingInput("Board", "2024-01-30"))
	path := "/api/v1/rotaract/meeting-reports/"

	tests := []httpTest{
		{
			name: "unknown", path: path + "RCM19990001", token: getToken(t, env, owner),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, apiErr(http.StatusNotFound, "meeting report not found")),
		},
		{
			name: "not the owner", path: path + first.MeetingID, token: getToken(t, env, intruder),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, apiErr(http.StatusForbidden, "permission denied")),
		},
		{
			name: "owner", path: path + first.MeetingID, token: getToken(t, env, owner),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, apiOK(http.StatusOK, nil, "Meeting report removed successfully")),
		},
		{
			name: "already deleted", path: path + first.MeetingID, token: getToken(t, env, owner),
			wantCode: http.StatusNotFound,
		},
		{
			name: "admin", path: path + second.MeetingID, token: getToken(t, env, admin),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func projectFields(name string) map[string]string {
	in := testutil.ProjectInput(name, "2024-01-30")
	return map[string]string{
		"projectName":        in.ProjectName,
		"venue":              in.Venue,
		"projectMode":        in.ProjectMode,
		"startDate":          in.StartDate,
		"endDate":            in.EndDate,
		"avenue1":            in.Avenue1,
		"avenue2":            "select",
		"chairPersons":       "Ada, Grace",
		"feedbackList":       `[{"question":"Was it useful?","answer":"yes"}]`,
		"coverImageUrl":      in.CoverImageURL,
		"attendanceImageUrl": in.AttendanceImageURL,
		"supportDocumentUrl": in.SupportDocumentURL,
		"income":             "1500.5",
		"isJointProject":     "false",
	}
}

// localPath maps a public upload url back to the file on disk.
func localPath(env testEnv, publicURL string) string {
	rel := strings.TrimPrefix(publicURL, env.app.Conf.Storage.PublicURL+"/")
	return filepath.Join(env.app.Conf.Storage.LocalDir, filepath.FromSlash(rel))
}

func Test_reportApi_projects(t *testing.T) {
	env := setup(t, tickingClock(feb3rd))
	usr := env.createUser(t, "member")
	token := getToken(t, env, usr)
	base := "/api/v1/rotaract/project-reports"

	var created report.ProjectReport
	t.Run("create with finance sheet", func(t *testing.T) {
		req, rec := newMultipartRequest(t, base, token, projectFields("Blood Drive"), map[string][2]string{
			"financeExcelSheet": {"finance.xlsx", "income,expense\n1500.5,0\n"},
		})
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode(t, rec, &created)
		assert.Equal(t, "Project report created successfully.", resp.Message)
		assert.Equal(t, "PROJ0001", created.ProjectID)
		assert.Equal(t, "-", created.Avenue2)
		assert.Equal(t, report.StringList{"Ada", "Grace"}, created.ChairPersons)
		assert.Len(t, created.FeedbackList, 1)
		assert.Equal(t, 1500.5, created.Income)
		// submitted after 00:00 on the 3rd of the month following the end date
		assert.Equal(t, report.StatusLate, created.Status)
		require.True(t, strings.HasPrefix(created.FinanceExcelSheet, env.app.Conf.Storage.PublicURL+"/project_reports/"))

		content, err := os.ReadFile(localPath(env, created.FinanceExcelSheet))
		require.NoError(t, err)
		assert.Equal(t, "income,expense\n1500.5,0\n", string(content))
	})

	t.Run("create without file as json", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base, token, marchallObj(t, testutil.ProjectInput("Tree Planting", "2024-01-30")))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var rep report.ProjectReport
		decode(t, rec, &rep)
		assert.Equal(t, "PROJ0002", rep.ProjectID)
		assert.Equal(t, report.StatusLate, rep.Status)
		assert.Empty(t, rep.FinanceExcelSheet)
	})

	t.Run("invalid", func(t *testing.T) {
		noChairs := projectFields("No Chairs")
		noChairs["chairPersons"] = " , "
		badFeedback := projectFields("Bad Feedback")
		badFeedback["feedbackList"] = "{not json"
		joint := projectFields("Joint")
		joint["isJointProject"] = "true"
		noName := projectFields("")

		tests := []struct {
			name      string
			fields    map[string]string
			wantField string
		}{
			{"no chair persons", noChairs, "chairPersons"},
			{"bad feedback list", badFeedback, "feedbackList"},
			{"joint without partner", joint, "jointProjectPartner"},
			{"no name", noName, "projectName"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newMultipartRequest(t, base, token, tt.fields, nil)
				env.serve(req, rec)
				require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
				resp := decode(t, rec, nil)
				assert.Contains(t, resp.Errors, tt.wantField)
			})
		}
	})

	t.Run("search", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, listPath(base, map[string]string{"searchQuery": "blood"}), token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var data ListingResponse[report.ProjectReport]
		decode(t, rec, &data)
		require.Len(t, data.Data, 1)
		assert.Equal(t, "PROJ0001", data.Data[0].ProjectID)
	})

	t.Run("delete removes the finance sheet", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, base+"/"+created.ProjectID, token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode(t, rec, nil)
		assert.Equal(t, "Project report and associated files deleted successfully.", resp.Message)

		_, err := os.Stat(localPath(env, created.FinanceExcelSheet))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("delete keeps the report when its file cannot be removed", func(t *testing.T) {
		req, rec := newMultipartRequest(t, base, token, projectFields("Orphan"), map[string][2]string{
			"financeExcelSheet": {"orphan.xlsx", "data"},
		})
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var rep report.ProjectReport
		decode(t, rec, &rep)
		require.NoError(t, os.Remove(localPath(env, rep.FinanceExcelSheet)))

		req, rec = newAuthRequest(http.MethodDelete, base+"/"+rep.ProjectID, token)
		env.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, apiErr(http.StatusBadRequest, "failed to delete associated files")),
		}, rec)

		_, err := env.app.Repos.Projects.Get(req.Context(), rep.ProjectID)
		assert.NoError(t, err)
	})
}

func Test_reportApi_mous(t *testing.T) {
	env := setup(t, tickingClock(feb3rd))
	usr := env.createUser(t, "member")
	token := getToken(t, env, usr)
	base := "/api/v1/rotaract/mou-reports"

	fields := map[string]string{
		"sponsorName":                  "Acme Corp",
		"sponsorAmount":                "2500",
		"deliverablesOfferedBySponsor": "Funding",
		"deliverablesOfferedByClub":    "Branding",
		"dateOfSigning":                "2024-01-15",
	}
	req, rec := newMultipartRequest(t, base, token, fields, map[string][2]string{
		"mouPdfUpload": {"mou.pdf", "%PDF-1.4"},
	})
	env.serve(req, rec)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var mou report.MouRecord
	decode(t, rec, &mou)
	assert.Equal(t, "MOU20240001", mou.MouID)
	assert.Equal(t, 2500.0, mou.SponsorAmount)
	assert.True(t, strings.HasPrefix(mou.MouPdfUpload, env.app.Conf.Storage.PublicURL+"/mou_reports/"))

	t.Run("invalid", func(t *testing.T) {
		tests := []httpTest{
			{name: "missing sponsor", body: []byte(`{"dateOfSigning":"2024-01-15"}`), wantCode: http.StatusBadRequest},
			{name: "negative amount", body: []byte(`{"sponsorName":"Acme","sponsorAmount":-1,"dateOfSigning":"2024-01-15"}`), wantCode: http.StatusBadRequest},
			{name: "missing date", body: []byte(`{"sponsorName":"Acme"}`), wantCode: http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPost, base, token, tt.body)
				env.serve(req, rec)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("search on sponsor only", func(t *testing.T) {
		for search, want := range map[string]int{"acme": 1, "MOU2024": 0} {
			req, rec := newAuthRequest(http.MethodGet, listPath(base, map[string]string{"searchQuery": search}), token)
			env.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var data ListingResponse[report.MouRecord]
			decode(t, rec, &data)
			assert.Len(t, data.Data, want, search)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, base+"/"+mou.MouID, token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		_, err := os.Stat(localPath(env, mou.MouPdfUpload))
		assert.True(t, os.IsNotExist(err))
	})
}
