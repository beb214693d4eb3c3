package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/noc"
	"github.com/trezcool/mafunzo/core/user"
	"github.com/trezcool/mafunzo/core/workflow"
)

type nocApi struct {
	svc    noc.Service
	usrSvc user.Service
}

func registerNOCAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc noc.Service, usrSvc user.Service) {
	api := nocApi{svc: svc, usrSvc: usrSvc}

	ng := g.Group("/noc-requests", jwt)
	ng.POST("", api.create, studentMiddleware())
	ng.GET("", api.query)
	ng.GET("/:id", api.retrieve)
	ng.PUT("/:id/review", api.review, reviewerMiddleware())
}

func (api *nocApi) create(ctx echo.Context) error {
	var data noc.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	req, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating NOC request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *nocApi) query(ctx echo.Context) error {
	filter := new(noc.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []noc.Request{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// students only ever see their own requests
	if !(claims.IsReviewer() || claims.IsAdmin) {
		filter.SubmitterID = claims.Subject
	}

	reqs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying NOC requests")
	}
	if reqs == nil {
		reqs = []noc.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *nocApi) retrieve(ctx echo.Context) error {
	req, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if req.SubmitterID != claims.Subject && !(claims.IsReviewer() || claims.IsAdmin) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *nocApi) review(ctx echo.Context) error {
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

	req, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}
