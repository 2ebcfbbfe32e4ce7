package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mastermeng/fabricrest/internal/auth"
	"github.com/mastermeng/fabricrest/internal/ledger"
)

const (
	userKey = "fabricrest.user"

	authFailedMessage = "Failed to authenticate token. Make sure to include the token returned from /users call in the authorization header as a Bearer token"
)

// Verifier checks bearer tokens.
type Verifier interface {
	Verify(token string) (ledger.User, error)
}

func (s *Server) authenticate(ctx *gin.Context) {
	token, ok := auth.BearerToken(ctx.GetHeader("Authorization"))
	if !ok {
		s.unauthorized(ctx)
		return
	}
	user, err := s.verifier.Verify(token)
	if err != nil {
		s.logger.Debugf("rejected token on %s: %s", ctx.Request.URL.Path, err)
		s.unauthorized(ctx)
		return
	}
	ctx.Set(userKey, user)
	ctx.Next()
}

func (s *Server) unauthorized(ctx *gin.Context) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": authFailedMessage})
}

func currentUser(ctx *gin.Context) ledger.User {
	value, _ := ctx.Get(userKey)
	user, _ := value.(ledger.User)
	return user
}
