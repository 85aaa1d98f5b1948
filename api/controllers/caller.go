package controllers

import (
	"net/http"

	"github.com/angelmondragon/backoffice-api/api/middleware"
	"github.com/angelmondragon/backoffice-api/pkg/auth"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
)

func callerFrom(r *http.Request) (auth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "No token, authorization denied")
	}
	return p, nil
}
