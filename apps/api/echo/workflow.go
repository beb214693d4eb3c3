package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/mafunzo/core/workflow"
)

type statusInfo struct {
	Status   workflow.Status `json:"status"`
	Terminal bool            `json:"terminal"`
	Label    workflow.Label  `json:"label"`
}

func registerWorkflowAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	wg := g.Group("/workflow", jwt)
	wg.GET("/statuses", queryStatuses)
}

// queryStatuses lists all submission statuses with their display labels,
// so frontends never hard-code the lifecycle.
func queryStatuses(ctx echo.Context) error {
	infos := make([]statusInfo, 0, len(workflow.AllStatuses))
	for _, s := range workflow.AllStatuses {
		infos = append(infos, statusInfo{
			Status:   s,
			Terminal: workflow.IsTerminal(s),
			Label:    workflow.LabelFor(s),
		})
	}
	return ctx.JSON(http.StatusOK, infos)
}
