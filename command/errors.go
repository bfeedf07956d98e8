package command

import (
	"errors"

	"github.com/goliatone/go-star/pkg/types"
)

var (
	// ErrExternalIDRequired indicates the identity claims lacked a subject.
	ErrExternalIDRequired = errors.New("go-star: external id required")
	// ErrActorRequired indicates an acting user was not supplied.
	ErrActorRequired = errors.New("go-star: actor required")
	// ErrIDRequired indicates the target record id was missing.
	ErrIDRequired = errors.New("go-star: record id required")
	// ErrAuditActionRequired indicates an audit entry is missing its action.
	ErrAuditActionRequired = errors.New("go-star: audit action required")
	// ErrContentRequired indicates an analysis request carried neither text nor image.
	ErrContentRequired = errors.New("go-star: text or image required")
	// ErrImageStoreRequired indicates an image workflow ran without a store.
	ErrImageStoreRequired = errors.New("go-star: image store required")
	// ErrUserIDRequired indicates a command omitted the owning user.
	ErrUserIDRequired = types.ErrUserIDRequired
)

const (
	msgStoryNotFound     = "STAR story not found"
	msgStoryForbidden    = "Not authorized to access this STAR story"
	msgCaseNotFound      = "Case study not found"
	msgCaseForbidden     = "Not authorized to access this case study"
	msgCompetencyMissing = "Competency not found"
	msgUserNotFound      = "User not found"
)
