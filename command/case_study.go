package command

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-star/imagestore"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/goliatone/go-star/validation"
	"github.com/google/uuid"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// ImageUpload is an image submitted with a case study.
type ImageUpload struct {
	Data []byte
}

// CaseStudyCommandConfig wires the case study handlers.
type CaseStudyCommandConfig struct {
	CaseStudies types.CaseStudyRepository
	Images      imagestore.Store
	Audit       types.AuditSink
	Tx          Transactor
	Clock       types.Clock
	Hooks       types.Hooks
	Logger      types.Logger
}

type caseStudyDeps struct {
	repo   types.CaseStudyRepository
	images imagestore.Store
	audit  types.AuditSink
	tx     Transactor
	clock  types.Clock
	hooks  types.Hooks
	logger types.Logger
}

func newCaseStudyDeps(cfg CaseStudyCommandConfig) caseStudyDeps {
	return caseStudyDeps{
		repo:   cfg.CaseStudies,
		images: cfg.Images,
		audit:  cfg.Audit,
		tx:     safeTx(cfg.Tx),
		clock:  safeClock(cfg.Clock),
		hooks:  cfg.Hooks,
		logger: safeLogger(cfg.Logger),
	}
}

// storeImage validates and writes an upload, returning its key.
func (d caseStudyDeps) storeImage(ctx context.Context, userID int64, upload *ImageUpload) (string, error) {
	if upload == nil {
		return "", nil
	}
	if d.images == nil {
		return "", ErrImageStoreRequired
	}
	contentType, err := validation.ImageContentType(upload.Data)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("case-studies/%d/%s%s", userID, uuid.NewString(), imageExtensions[contentType])
	if err := d.images.Put(ctx, key, upload.Data, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// discardImage removes an image whose database write did not happen or was
// undone. Failures are logged only.
func (d caseStudyDeps) discardImage(ctx context.Context, key string) {
	if key == "" || d.images == nil {
		return
	}
	if err := d.images.Delete(ctx, key); err != nil {
		d.logger.Error("case study image cleanup failed", err, "key", key)
	}
}

func loadOwnedCaseStudy(ctx context.Context, repo types.CaseStudyRepository, id, userID int64) (*types.CaseStudy, error) {
	cs, err := repo.GetCaseStudyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cs == nil {
		return nil, notFound(msgCaseNotFound)
	}
	if userID > 0 && cs.UserID != userID {
		return nil, forbidden(msgCaseForbidden)
	}
	return cs, nil
}

// CaseStudyCreateInput creates a case study, optionally with an image.
type CaseStudyCreateInput struct {
	CaseStudy types.CaseStudyInput
	Image     *ImageUpload
	Result    *types.CaseStudy
}

// Type implements gocommand.Message.
func (CaseStudyCreateInput) Type() string {
	return "command.case_study.create"
}

// Validate implements gocommand.Message.
func (input CaseStudyCreateInput) Validate() error {
	if _, err := validation.CaseStudy(input.CaseStudy); err != nil {
		return err
	}
	if input.Image != nil {
		_, err := validation.ImageContentType(input.Image.Data)
		return err
	}
	return nil
}

// CaseStudyCreateCommand validates, stores the image and inserts the record.
type CaseStudyCreateCommand struct {
	caseStudyDeps
}

// NewCaseStudyCreateCommand constructs the handler.
func NewCaseStudyCreateCommand(cfg CaseStudyCommandConfig) *CaseStudyCreateCommand {
	return &CaseStudyCreateCommand{newCaseStudyDeps(cfg)}
}

var _ gocommand.Commander[CaseStudyCreateInput] = (*CaseStudyCreateCommand)(nil)

// Execute implements gocommand.Commander.
func (c *CaseStudyCreateCommand) Execute(ctx context.Context, input CaseStudyCreateInput) error {
	if c.repo == nil {
		return types.ErrMissingCaseStudyRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	clean, _ := validation.CaseStudy(input.CaseStudy)
	key, err := c.storeImage(ctx, clean.UserID, input.Image)
	if err != nil {
		return err
	}
	if key != "" {
		clean.ImagePath = key
	}
	var (
		created *types.CaseStudy
		record  types.AuditRecord
	)
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.repo.CreateCaseStudy(ctx, clean)
		if err != nil {
			return err
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     created.UserID,
			Action:     ActionCaseStudyCreated,
			EntityType: EntityCaseStudy,
			EntityID:   created.ID,
			Details:    "Created case study: " + created.Title,
		})
		return err
	})
	if err != nil {
		c.discardImage(ctx, key)
		return err
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = *created
	}
	return nil
}

// CaseStudyUpdateInput patches a case study owned by UserID. A new Image
// replaces the stored one.
type CaseStudyUpdateInput struct {
	UserID      int64
	CaseStudyID int64
	Patch       types.CaseStudyPatch
	Image       *ImageUpload
	Result      *types.CaseStudy
}

// Type implements gocommand.Message.
func (CaseStudyUpdateInput) Type() string {
	return "command.case_study.update"
}

// Validate implements gocommand.Message.
func (input CaseStudyUpdateInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.CaseStudyID <= 0:
		return ErrIDRequired
	}
	if _, err := validation.CaseStudyPatch(input.Patch); err != nil {
		return err
	}
	if input.Image != nil {
		_, err := validation.ImageContentType(input.Image.Data)
		return err
	}
	return nil
}

// CaseStudyUpdateCommand applies case study patches after an ownership check.
type CaseStudyUpdateCommand struct {
	caseStudyDeps
}

// NewCaseStudyUpdateCommand constructs the handler.
func NewCaseStudyUpdateCommand(cfg CaseStudyCommandConfig) *CaseStudyUpdateCommand {
	return &CaseStudyUpdateCommand{newCaseStudyDeps(cfg)}
}

var _ gocommand.Commander[CaseStudyUpdateInput] = (*CaseStudyUpdateCommand)(nil)

// Execute implements gocommand.Commander.
func (c *CaseStudyUpdateCommand) Execute(ctx context.Context, input CaseStudyUpdateInput) error {
	if c.repo == nil {
		return types.ErrMissingCaseStudyRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	patch, _ := validation.CaseStudyPatch(input.Patch)
	key, err := c.storeImage(ctx, input.UserID, input.Image)
	if err != nil {
		return err
	}
	if key != "" {
		patch.ImagePath = &key
	}
	var (
		previous string
		updated  *types.CaseStudy
		record   types.AuditRecord
	)
	err = c.tx.Run(ctx, func(ctx context.Context) error {
		existing, err := loadOwnedCaseStudy(ctx, c.repo, input.CaseStudyID, input.UserID)
		if err != nil {
			return err
		}
		previous = existing.ImagePath
		updated, err = c.repo.UpdateCaseStudy(ctx, input.CaseStudyID, patch)
		if err != nil {
			return err
		}
		if updated == nil {
			return notFound(msgCaseNotFound)
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.UserID,
			Action:     ActionCaseStudyUpdated,
			EntityType: EntityCaseStudy,
			EntityID:   updated.ID,
			Details:    "Updated case study: " + updated.Title,
		})
		return err
	})
	if err != nil {
		c.discardImage(ctx, key)
		return err
	}
	if key != "" && previous != "" && previous != key {
		c.discardImage(ctx, previous)
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = *updated
	}
	return nil
}

// CaseStudyDeleteInput removes a case study owned by UserID and its image.
type CaseStudyDeleteInput struct {
	UserID      int64
	CaseStudyID int64
	Result      *bool
}

// Type implements gocommand.Message.
func (CaseStudyDeleteInput) Type() string {
	return "command.case_study.delete"
}

// Validate implements gocommand.Message.
func (input CaseStudyDeleteInput) Validate() error {
	switch {
	case input.UserID <= 0:
		return ErrUserIDRequired
	case input.CaseStudyID <= 0:
		return ErrIDRequired
	default:
		return nil
	}
}

// CaseStudyDeleteCommand deletes case studies after an ownership check.
type CaseStudyDeleteCommand struct {
	caseStudyDeps
}

// NewCaseStudyDeleteCommand constructs the handler.
func NewCaseStudyDeleteCommand(cfg CaseStudyCommandConfig) *CaseStudyDeleteCommand {
	return &CaseStudyDeleteCommand{newCaseStudyDeps(cfg)}
}

var _ gocommand.Commander[CaseStudyDeleteInput] = (*CaseStudyDeleteCommand)(nil)

// Execute removes the stored image only after the row delete committed.
func (c *CaseStudyDeleteCommand) Execute(ctx context.Context, input CaseStudyDeleteInput) error {
	if c.repo == nil {
		return types.ErrMissingCaseStudyRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	var (
		removed bool
		image   string
		record  types.AuditRecord
	)
	err := c.tx.Run(ctx, func(ctx context.Context) error {
		cs, err := loadOwnedCaseStudy(ctx, c.repo, input.CaseStudyID, input.UserID)
		if err != nil {
			return err
		}
		image = cs.ImagePath
		removed, err = c.repo.DeleteCaseStudy(ctx, input.CaseStudyID)
		if err != nil || !removed {
			return err
		}
		record, err = writeAudit(ctx, c.audit, c.clock, types.AuditRecord{
			UserID:     input.UserID,
			Action:     ActionCaseStudyDeleted,
			EntityType: EntityCaseStudy,
			EntityID:   input.CaseStudyID,
			Details:    "Deleted case study: " + cs.Title,
		})
		return err
	})
	if err != nil {
		return err
	}
	if removed {
		c.discardImage(ctx, image)
	}
	emitAuditHook(ctx, c.hooks, record)
	if input.Result != nil {
		*input.Result = removed
	}
	return nil
}
