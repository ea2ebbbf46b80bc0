package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linkcal/internal/application"
	"linkcal/internal/application/configsync"
	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

// BlockInfo describes one component block found in a document
type BlockInfo struct {
	Kind      domain.ComponentKind
	ID        string
	Line      int    // 1-based line of the opening fence inside its text
	NodeID    string // Canvas node carrying the block, empty for notes
	Config    domain.Config
	Fallbacks []domain.Fallback
	Err       error // Set when the block cannot be decoded
}

// ListBlocksResult contains the component blocks of a document
type ListBlocksResult struct {
	Path    string
	Blocks  []BlockInfo
	Message string
}

// ListBlocksCommand lists the component blocks in a note or canvas
type ListBlocksCommand struct {
	docs ports.DocumentStore
	Path string
	now  func() time.Time
}

// NewListBlocksCommand creates a new ListBlocksCommand
func NewListBlocksCommand(docs ports.DocumentStore, path string) *ListBlocksCommand {
	return &ListBlocksCommand{docs: docs, Path: path, now: time.Now}
}

// Validate checks the command inputs
func (c *ListBlocksCommand) Validate() error {
	return application.ValidateRequired("carrierPath", c.Path)
}

// Execute runs the list command
func (c *ListBlocksCommand) Execute(ctx context.Context) (*ListBlocksResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	text, err := c.docs.ReadDocument(ctx, c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Path, err)
	}

	var blocks []BlockInfo
	if configsync.CarrierFor(c.Path) == configsync.CarrierGraph {
		doc, err := domain.ParseGraphDocument([]byte(text))
		if err != nil {
			return nil, &application.ValidationError{Field: "carrierPath", Message: err.Error()}
		}
		for i := range doc.Nodes {
			nodeText, ok := doc.NodeText(i)
			if !ok {
				continue
			}
			blocks = append(blocks, c.describe(nodeText, doc.NodeID(i))...)
		}
	} else {
		blocks = c.describe(text, "")
	}

	return &ListBlocksResult{
		Path:    c.Path,
		Blocks:  blocks,
		Message: fmt.Sprintf("%d blocks in %s", len(blocks), c.Path),
	}, nil
}

func (c *ListBlocksCommand) describe(text, nodeID string) []BlockInfo {
	var out []BlockInfo
	for _, ref := range domain.FindBlocks(text) {
		kind, ok := domain.ParseComponentKind(ref.Kind)
		if !ok {
			continue
		}
		info := BlockInfo{Kind: kind, ID: ref.ID, Line: ref.Start + 1, NodeID: nodeID}
		info.Config, info.Fallbacks, info.Err = domain.DecodeConfig(ref.Block, c.now())
		out = append(out, info)
	}
	return out
}

// SetPropertyResult contains the result of updating a block property
type SetPropertyResult struct {
	Path    string
	Updated int
	Message string
}

// SetPropertyCommand writes one property of a block through the sync engine
type SetPropertyCommand struct {
	engine  *configsync.Engine
	Path    string
	Kind    string
	BlockID string
	Key     string
	Values  []string
}

// NewSetPropertyCommand creates a new SetPropertyCommand
func NewSetPropertyCommand(engine *configsync.Engine, path, kind, blockID, key string, values []string) *SetPropertyCommand {
	return &SetPropertyCommand{
		engine:  engine,
		Path:    path,
		Kind:    kind,
		BlockID: blockID,
		Key:     key,
		Values:  values,
	}
}

// Validate checks the command inputs
func (c *SetPropertyCommand) Validate() error {
	if err := application.ValidateRequired("carrierPath", c.Path); err != nil {
		return err
	}
	if _, err := application.ValidateComponentKind("kind", c.Kind); err != nil {
		return err
	}
	if err := application.ValidateRequired("blockID", c.BlockID); err != nil {
		return err
	}
	return application.ValidateRequired("key", c.Key)
}

// Execute runs the set command
func (c *SetPropertyCommand) Execute(ctx context.Context) (*SetPropertyResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	kind, _ := application.ValidateComponentKind("kind", c.Kind)

	loc := configsync.Location{Kind: configsync.CarrierFor(c.Path), Path: c.Path}
	h, _, err := c.engine.Mount(ctx, loc, kind, c.BlockID, nil)
	if err != nil && !errors.Is(err, configsync.ErrAlreadyRegistered) {
		return nil, err
	}
	if err == nil {
		defer c.engine.Dispose(h)
	}

	res, err := c.engine.UpdateProperty(ctx, h, c.Key, c.Values...)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Set %s on %s in %s", c.Key, c.BlockID, res.Path)
	if res.Updated > 1 {
		msg = fmt.Sprintf("Set %s on %d duplicates of %s in %s", c.Key, res.Updated, c.BlockID, res.Path)
	}
	return &SetPropertyResult{Path: res.Path, Updated: res.Updated, Message: msg}, nil
}

// CreateBlockResult contains the result of creating a block
type CreateBlockResult struct {
	Path    string
	Config  domain.Config
	Message string
}

// CreateBlockCommand appends a new component block with a fresh id to a note
type CreateBlockCommand struct {
	docs  ports.DocumentStore
	Path  string
	Kind  string
	Paths []string
	now   func() time.Time
}

// NewCreateBlockCommand creates a new CreateBlockCommand
func NewCreateBlockCommand(docs ports.DocumentStore, path, kind string, paths []string) *CreateBlockCommand {
	return &CreateBlockCommand{
		docs:  docs,
		Path:  path,
		Kind:  kind,
		Paths: paths,
		now:   time.Now,
	}
}

// Validate checks the command inputs
func (c *CreateBlockCommand) Validate() error {
	if err := application.ValidateRequired("carrierPath", c.Path); err != nil {
		return err
	}
	if domain.DocumentKindOf(c.Path) != domain.DocumentMarkdown {
		return &application.ValidationError{
			Field:   "carrierPath",
			Message: fmt.Sprintf("blocks can only be created in markdown notes, got: %s", c.Path),
		}
	}
	_, err := application.ValidateComponentKind("kind", c.Kind)
	return err
}

// Execute runs the create command
func (c *CreateBlockCommand) Execute(ctx context.Context) (*CreateBlockResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	kind, _ := application.ValidateComponentKind("kind", c.Kind)

	cfg, err := domain.NewConfig(kind, c.Paths, c.now())
	if err != nil {
		return nil, err
	}

	text, err := c.docs.ReadDocument(ctx, c.Path)
	if err != nil && !errors.Is(err, application.ErrNotFound) {
		return nil, fmt.Errorf("failed to read %s: %w", c.Path, err)
	}

	if err := c.docs.WriteDocument(ctx, c.Path, domain.InsertBlock(text, cfg)); err != nil {
		return nil, &application.IOError{Path: c.Path, Err: err}
	}

	return &CreateBlockResult{
		Path:    c.Path,
		Config:  cfg,
		Message: fmt.Sprintf("Created %s %s in %s", kind, cfg.BlockID(), c.Path),
	}, nil
}
