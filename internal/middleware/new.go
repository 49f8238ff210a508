package middleware

import (
	"github.com/google/uuid"

	"gitlab-metrics/internal/webhook"
	"gitlab-metrics/pkg/log"
)

type Middleware struct {
	l        log.Logger
	security *webhook.SecurityValidator
	newID    func() string
}

func New(l log.Logger, security *webhook.SecurityValidator) Middleware {
	return Middleware{
		l:        l,
		security: security,
		newID:    uuid.NewString,
	}
}
