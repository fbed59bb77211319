package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"uadcheck/internal/schema"
	dErrors "uadcheck/pkg/domain-errors"
)

// Default locations of the rule documents inside a rules file system.
const (
	DefaultSchemaPath    = "schema/uad_1004_v1.json"
	DefaultRegistryPath  = "registry/fields.json"
	DefaultSignaturePath = "registry/signature_requirements.json"
	DefaultPhotoPath     = "registry/photo_inventory.json"
)

// Ruleset is everything one validation run needs. It is immutable after
// loading and may be shared across goroutines.
type Ruleset struct {
	Schema    *schema.Checker
	Fields    *FieldRegistry
	Signature SignatureRequirements
	Photos    []PhotoRequirement
}

// Loader reads rule documents from a file system.
type Loader struct {
	fsys          fs.FS
	signaturePath string
	photoPath     string
	logger        *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSignaturePath overrides the signature dependency document location.
func WithSignaturePath(p string) LoaderOption {
	return func(l *Loader) {
		l.signaturePath = p
	}
}

// WithPhotoPath overrides the photo inventory document location.
func WithPhotoPath(p string) LoaderOption {
	return func(l *Loader) {
		l.photoPath = p
	}
}

// NewLoader creates a Loader over fsys.
func NewLoader(fsys fs.FS, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:          fsys,
		signaturePath: DefaultSignaturePath,
		photoPath:     DefaultPhotoPath,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and validates the schema and field registry named by the
// refs together with the optional signature and photo documents. The
// required documents must exist; a missing optional document yields an
// empty configuration, while a malformed one is an error.
func (l *Loader) Load(ctx context.Context, schemaRef, registryRef string) (*Ruleset, error) {
	schemaPath, err := CleanRef(schemaRef)
	if err != nil {
		return nil, err
	}
	registryPath, err := CleanRef(registryRef)
	if err != nil {
		return nil, err
	}

	rs := &Ruleset{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := l.read(ctx, schemaPath)
		if err != nil {
			return err
		}
		checker, err := schema.Compile(schemaPath, data)
		if err != nil {
			return err
		}
		rs.Schema = checker
		return nil
	})

	g.Go(func() error {
		data, err := l.read(ctx, registryPath)
		if err != nil {
			return err
		}
		reg, err := ParseFieldRegistry(data)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConfigInvalid, registryPath)
		}
		rs.Fields = reg
		return nil
	})

	g.Go(func() error {
		data, ok, err := l.readOptional(ctx, l.signaturePath)
		if err != nil || !ok {
			return err
		}
		req, err := ParseSignatureRequirements(data)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConfigInvalid, l.signaturePath)
		}
		rs.Signature = req
		return nil
	})

	g.Go(func() error {
		data, ok, err := l.readOptional(ctx, l.photoPath)
		if err != nil || !ok {
			return err
		}
		photos, err := ParsePhotoInventory(data)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeConfigInvalid, l.photoPath)
		}
		rs.Photos = photos
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for owner, exprErr := range rs.Fields.ExpressionErrors() {
		l.logger.Warn("rule expression does not compile and will evaluate to false",
			"owner", owner,
			"error", exprErr,
		)
	}
	return rs, nil
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, dErrors.Wrap(err, dErrors.CodeConfigNotFound, fmt.Sprintf("rule document %s not found", name))
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfigInvalid, fmt.Sprintf("read rule document %s", name))
	}
	return data, nil
}

func (l *Loader) readOptional(ctx context.Context, ref string) ([]byte, bool, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, false, nil
	}
	name, err := CleanRef(ref)
	if err != nil {
		return nil, false, err
	}
	data, err := l.read(ctx, name)
	if dErrors.HasCode(err, dErrors.CodeConfigNotFound) {
		l.logger.Debug("optional rule document not found", "path", name)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// CleanRef turns a document reference into a path valid for fs.FS.
func CleanRef(ref string) (string, error) {
	p := strings.TrimSpace(filepath.ToSlash(ref))
	p = strings.TrimPrefix(path.Clean(p), "./")
	if p == "" || p == "." || !fs.ValidPath(p) {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("invalid rule document reference %q", ref))
	}
	return p, nil
}
