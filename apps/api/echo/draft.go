package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core/draft"
)

type draftApi struct {
	svc *draft.Service
}

func registerDraftAPI(g *echo.Group, svc *draft.Service) {
	api := draftApi{svc: svc}

	mg := g.Group("/meeting-drafts")
	mg.POST("", api.saveMeeting)
	mg.GET("", api.listMeetings)
	mg.DELETE("/:draftId", api.deleteMeeting)

	pg := g.Group("/project-drafts")
	pg.POST("", api.saveProject)
	pg.GET("", api.listProjects)
	pg.DELETE("/:draftId", api.deleteProject)

	g.POST("/drafts/sweep", api.sweep, adminMiddleware())
}

func savedDraft(ctx echo.Context, data interface{}, created bool) error {
	if created {
		return respond(ctx, http.StatusCreated, data, "Draft created successfully")
	}
	return respond(ctx, http.StatusOK, data, "Draft updated successfully")
}

// Meeting drafts

func (api *draftApi) saveMeeting(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data draft.SaveMeetingDraft
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveMeetingDraft")
	}
	d, created, err := api.svc.SaveMeeting(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "saving meeting draft")
	}
	return savedDraft(ctx, d, created)
}

func (api *draftApi) listMeetings(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	l, err := api.svc.ListMeetings(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, newDraftListingResponse(l), "Meeting drafts retrieved successfully.")
}

func (api *draftApi) deleteMeeting(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteMeeting(ctx.Request().Context(), usr, ctx.Param("draftId")); err != nil {
		return errors.Wrap(err, "deleting meeting draft")
	}
	return respond(ctx, http.StatusAccepted, nil, "Draft removed successfully")
}

// Project drafts

func (api *draftApi) saveProject(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data draft.SaveProjectDraft
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveProjectDraft")
	}
	d, created, err := api.svc.SaveProject(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "saving project draft")
	}
	return savedDraft(ctx, d, created)
}

func (api *draftApi) listProjects(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	l, err := api.svc.ListProjects(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, newDraftListingResponse(l), "Project drafts retrieved successfully.")
}

func (api *draftApi) deleteProject(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteProject(ctx.Request().Context(), usr, ctx.Param("draftId")); err != nil {
		return errors.Wrap(err, "deleting project draft")
	}
	return respond(ctx, http.StatusOK, nil, "Draft removed successfully")
}

// sweep deletes every expired draft. Admins only.
func (api *draftApi) sweep(ctx echo.Context) error {
	n, err := api.svc.SweepAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, map[string]int64{"deleted": n}, "Expired drafts removed")
}
