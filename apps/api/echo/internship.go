package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/internship"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
)

type internshipApi struct {
	svc    internship.Service
	usrSvc user.Service
}

func registerInternshipAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc internship.Service, usrSvc user.Service) {
	api := internshipApi{svc: svc, usrSvc: usrSvc}

	og := g.Group("/internships", jwt)
	og.POST("", api.createOpportunity, tpoMiddleware())
	og.GET("", api.queryOpportunities)
	og.GET("/:id", api.retrieveOpportunity)
	og.PUT("/:id", api.updateOpportunity, tpoMiddleware())
	og.DELETE("/:id", api.destroyOpportunity, tpoMiddleware())

	ag := g.Group("/applications", jwt)
	ag.POST("", api.apply, studentMiddleware())
	ag.GET("", api.queryApplications)
	ag.GET("/:id", api.retrieveApplication)
	ag.PUT("/:id/review", api.reviewApplication, reviewerMiddleware())
}

// Opportunity handlers

func (api *internshipApi) createOpportunity(ctx echo.Context) error {
	var data internship.NewOpportunity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOpportunity")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	opp, err := api.svc.CreateOpportunity(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating opportunity")
	}
	return ctx.JSON(http.StatusCreated, opp)
}

func (api *internshipApi) queryOpportunities(ctx echo.Context) error {
	filter := new(internship.OpportunityQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []internship.Opportunity{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	opps, err := api.svc.QueryOpportunities(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying opportunities")
	}
	if opps == nil {
		opps = []internship.Opportunity{}
	}
	return ctx.JSON(http.StatusOK, opps)
}

func (api *internshipApi) retrieveOpportunity(ctx echo.Context) error {
	opp, err := api.svc.GetOpportunityByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, opp)
}

func (api *internshipApi) updateOpportunity(ctx echo.Context) error {
	var data internship.UpdateOpportunity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateOpportunity")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	opp, err := api.svc.UpdateOpportunity(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, opp)
}

func (api *internshipApi) destroyOpportunity(ctx echo.Context) error {
	if err := api.svc.DeleteOpportunity(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Application handlers

func (api *internshipApi) apply(ctx echo.Context) error {
	var data internship.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	app, err := api.svc.Apply(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, app)
}

func (api *internshipApi) queryApplications(ctx echo.Context) error {
	filter := new(internship.ApplicationQueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []internship.Application{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// students only ever see their own applications
	if !(claims.IsReviewer() || claims.IsAdmin) {
		filter.SubmitterID = claims.Subject
	}

	apps, err := api.svc.QueryApplications(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if apps == nil {
		apps = []internship.Application{}
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *internshipApi) retrieveApplication(ctx echo.Context) error {
	app, err := api.svc.GetApplicationByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if app.SubmitterID != claims.Subject && !(claims.IsReviewer() || claims.IsAdmin) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *internshipApi) reviewApplication(ctx echo.Context) error {
	var data workflow.ReviewDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewDecision")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	app, err := api.svc.ReviewApplication(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, app)
}
