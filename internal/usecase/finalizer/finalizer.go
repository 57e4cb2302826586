package finalizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/futig/formchat-backend/internal/config"
	"github.com/futig/formchat-backend/internal/entity"
	"github.com/futig/formchat-backend/internal/pkg/formatter"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	transcriptPrefix = "qa"
	filledFormPrefix = "filled"

	pdfContentType = "application/pdf"
	pdfExtension   = ".pdf"

	nameTimeLayout = "20060102T150405"
)

// Finalizer turns a completed batch into a downloadable artifact: the source
// form with its fields filled, or a transcript when there is no source form.
type Finalizer struct {
	config     config.FinalizerConfig
	forms      FormFiller
	transcript formatter.Formatter
	store      *Store
	now        func() time.Time
	newToken   func() string
	logger     *zap.Logger
}

func NewFinalizer(
	cfg config.FinalizerConfig,
	forms FormFiller,
	factory FormatterFactory,
	store *Store,
	logger *zap.Logger,
) (*Finalizer, error) {
	transcript, err := factory.Create(entity.TranscriptFormat(cfg.TranscriptFormat))
	if err != nil {
		return nil, fmt.Errorf("transcript formatter: %w", err)
	}

	return &Finalizer{
		config:     cfg,
		forms:      forms,
		transcript: transcript,
		store:      store,
		now:        time.Now,
		newToken:   uuid.NewString,
		logger:     logger,
	}, nil
}

// Finalize writes the artifact for records and registers it in the store
func (f *Finalizer) Finalize(ctx context.Context, records []entity.QuestionRecord, source *entity.SourceForm) (*entity.Artifact, error) {
	if source != nil {
		data, err := f.fillForm(records, source)
		if err != nil {
			return nil, err
		}
		return f.save(ctx, filledFormPrefix, pdfExtension, pdfContentType, data)
	}

	data, err := f.transcript.Format(records)
	if err != nil {
		return nil, fmt.Errorf("format transcript: %w", err)
	}
	return f.save(ctx, transcriptPrefix, f.transcript.FileExtension(), f.transcript.ContentType(), data)
}

// fillForm checks every identifier against the form before writing anything,
// the output is built from a fresh reader over the untouched source bytes
func (f *Finalizer) fillForm(records []entity.QuestionRecord, source *entity.SourceForm) ([]byte, error) {
	fields, err := f.forms.ReadFields(source.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: read fields of %s: %w", entity.ErrPopulation, source.Name, err)
	}

	known := make(map[string]bool, len(fields))
	for _, field := range fields {
		known[field.Name] = true
	}

	values := make(map[string]string, len(records))
	for _, r := range records {
		if !known[r.ID] {
			return nil, fmt.Errorf("%w: no field named %q in %s", entity.ErrPopulation, r.ID, source.Name)
		}
		values[r.ID] = r.Answer
	}

	var buf bytes.Buffer
	if err := f.forms.Fill(source.Content, values, &buf); err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrPopulation, err)
	}

	return buf.Bytes(), nil
}

func (f *Finalizer) save(ctx context.Context, prefix, ext, contentType string, data []byte) (*entity.Artifact, error) {
	if err := os.MkdirAll(f.config.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var name, path string
	opts := append(f.config.Retry.ToRetryOptions(),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Debug(ctx, "artifact name taken, retrying", zap.Uint("attempt", n+1), zap.String("name", name))
		}),
	)

	err := retry.Do(func() error {
		name = fmt.Sprintf("%s_%s_%s%s", prefix, f.now().UTC().Format(nameTimeLayout), f.newToken(), ext)
		path = filepath.Join(f.config.OutputDir, name)
		return writeExclusive(path, data)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	artifact := &entity.Artifact{
		Handle:      name,
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   f.now().UTC(),
	}
	f.store.Put(artifact)

	ctxzap.Info(ctx, "artifact written",
		zap.String("handle", artifact.Handle),
		zap.Int64("size", artifact.Size),
	)

	return artifact, nil
}

// writeExclusive never replaces an existing file. Only a name collision is
// worth another attempt.
func writeExclusive(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return err
	}
	if err != nil {
		return retry.Unrecoverable(err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return retry.Unrecoverable(err)
	}

	if err := file.Close(); err != nil {
		os.Remove(path)
		return retry.Unrecoverable(err)
	}

	return nil
}
