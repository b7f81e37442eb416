package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

// Shared terminal responses. Handlers return these directly so error bodies
// stay uniform across routes.
var (
	InternalServerError = echo.NewHTTPError(
		http.StatusInternalServerError,
		types.StringError("something went wrong"),
	)
	NotFoundError = echo.NewHTTPError(http.StatusNotFound, types.StringError("not found"))
)
