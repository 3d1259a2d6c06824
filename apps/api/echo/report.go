package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/report"
)

// multipart fields holding report attachments
const (
	financeSheetField = "financeExcelSheet"
	mouPdfField       = "mouPdfUpload"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, svc *report.Service) {
	api := reportApi{svc: svc}

	mg := g.Group("/meeting-reports")
	mg.POST("", api.createMeeting)
	mg.GET("", api.listMeetings)
	mg.DELETE("/:meetingId", api.deleteMeeting)

	pg := g.Group("/project-reports")
	pg.POST("", api.createProject)
	pg.GET("", api.listProjects)
	pg.DELETE("/:projectId", api.deleteProject)

	og := g.Group("/mou-reports")
	og.POST("", api.createMou)
	og.GET("", api.listMous)
	og.DELETE("/:mouId", api.deleteMou)
}

// formFile opens the optional uploaded file in field. The returned func closes it.
func formFile(ctx echo.Context, field string) (*core.Attachment, func(), error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, func() {}, nil
		}
		return nil, nil, errors.Wrapf(err, "reading %s", field)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", field)
	}
	closeFn := func() { _ = f.Close() }
	return &core.Attachment{Filename: fh.Filename, Size: fh.Size, Content: f}, closeFn, nil
}

func bindListQuery(ctx echo.Context) (report.ListQuery, error) {
	var q report.ListQuery
	if err := ctx.Bind(&q); err != nil {
		return q, errors.Wrap(err, "binding to ListQuery")
	}
	return q, nil
}

// Meeting reports

func (api *reportApi) createMeeting(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data report.NewMeetingReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeetingReport")
	}
	rep, err := api.svc.CreateMeeting(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating meeting report")
	}
	return respond(ctx, http.StatusCreated, rep, "Meeting report created successfully.")
}

func (api *reportApi) listMeetings(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.ListMeetings(ctx.Request().Context(), usr, q)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, newListingResponse(res), "Meeting reports retrieved successfully.")
}

func (api *reportApi) deleteMeeting(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteMeeting(ctx.Request().Context(), usr, ctx.Param("meetingId")); err != nil {
		return errors.Wrap(err, "deleting meeting report")
	}
	return respond(ctx, http.StatusOK, nil, "Meeting report removed successfully")
}

// Project reports

func (api *reportApi) createProject(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data report.NewProjectReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProjectReport")
	}
	sheet, closeSheet, err := formFile(ctx, financeSheetField)
	if err != nil {
		return err
	}
	defer closeSheet()

	rep, err := api.svc.CreateProject(ctx.Request().Context(), usr, data, sheet)
	if err != nil {
		return errors.Wrap(err, "creating project report")
	}
	return respond(ctx, http.StatusCreated, rep, "Project report created successfully.")
}

func (api *reportApi) listProjects(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.ListProjects(ctx.Request().Context(), usr, q)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, newListingResponse(res), "Project reports retrieved successfully.")
}

func (api *reportApi) deleteProject(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteProject(ctx.Request().Context(), usr, ctx.Param("projectId")); err != nil {
		return errors.Wrap(err, "deleting project report")
	}
	return respond(ctx, http.StatusOK, nil, "Project report and associated files deleted successfully.")
}

// MOUs

func (api *reportApi) createMou(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data report.MouInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MouInput")
	}
	pdf, closePdf, err := formFile(ctx, mouPdfField)
	if err != nil {
		return err
	}
	defer closePdf()

	rec, err := api.svc.CreateMou(ctx.Request().Context(), usr, data, pdf)
	if err != nil {
		return errors.Wrap(err, "creating mou")
	}
	return respond(ctx, http.StatusCreated, rec, "MOU created successfully.")
}

func (api *reportApi) listMous(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	q, err := bindListQuery(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.ListMous(ctx.Request().Context(), usr, q)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, newListingResponse(res), "MOUs retrieved successfully.")
}

func (api *reportApi) deleteMou(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteMou(ctx.Request().Context(), usr, ctx.Param("mouId")); err != nil {
		return errors.Wrap(err, "deleting mou")
	}
	return respond(ctx, http.StatusOK, nil, "MOU and associated files deleted successfully.")
}
