package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Chrouos/tomato-website-sub000/core/encourage"
)

type encourageAPI struct {
	svc *encourage.Service
}

func registerEncourageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *encourage.Service) {
	api := encourageAPI{svc: svc}

	eg := g.Group("/encouragements", jwt)
	eg.POST("", api.create)
	eg.GET("/inbox", api.inbox)
	eg.GET("/sent", api.sent)
	eg.GET("/summary", api.summary)
	eg.POST("/:id/reply", api.reply)
	eg.POST("/:id/read", api.markRead)
	eg.POST("/:id/read-reply", api.markReplyRead)

	g.POST("/sessions/:id/complete", api.completeSession, jwt)
}

func (api *encourageAPI) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	data := new(encourage.NewLetter)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = data.Validate(); err != nil {
		return err
	}

	ltr, err := api.svc.CreateLetter(ctx.Request().Context(), claims.Subject, data.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ltr)
}

func (api *encourageAPI) inbox(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	letters, err := api.svc.ListInbox(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, letters)
}

func (api *encourageAPI) sent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	letters, err := api.svc.ListSent(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, letters)
}

func (api *encourageAPI) summary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.GetSummary(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *encourageAPI) reply(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	data := new(encourage.NewReply)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = data.Validate(); err != nil {
		return err
	}

	ltr, err := api.svc.ReplyToLetter(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ltr)
}

func (api *encourageAPI) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkLetterRead(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *encourageAPI) markReplyRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkReplyRead(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *encourageAPI) completeSession(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	credits, err := api.svc.GrantCreditForSession(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"credits": credits})
}
