package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core/push"
)

type pushAPI struct {
	reg *push.Registry
}

func registerPushAPI(g *echo.Group, jwt echo.MiddlewareFunc, reg *push.Registry) {
	api := pushAPI{reg: reg}
	g.GET("/notifications/subscribe", api.subscribe, tokenFromQuery, jwt)
}

// subscribe opens a server-sent events stream for the authenticated
// user and drains their frame channel until either side disconnects.
func (api *pushAPI) subscribe(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	res := ctx.Response()
	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	// comment frame confirms the stream before any event arrives
	if _, err = fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	flusher.Flush()

	sub := api.reg.Subscribe(claims.Subject)
	defer api.reg.Unsubscribe(sub)

	reqCtx := ctx.Request().Context()
	for {
		select {
		case <-reqCtx.Done():
			return nil
		case <-sub.Done():
			return nil
		case frame := <-sub.Frames():
			if err = writeFrame(res, frame); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeFrame(w io.Writer, frame push.Frame) error {
	data, err := json.Marshal(frame.Data)
	if err != nil {
		return errors.Wrap(err, "encoding frame data")
	}
	if frame.ID != "" {
		if _, err = fmt.Fprintf(w, "id: %s\n", frame.ID); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(w, "event: %s\n", frame.Event); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
