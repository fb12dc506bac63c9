// Package ingest runs uploads through the ingestion pipeline: hash,
// dedup check, media processing, auto-tagging, tag resolution, and the
// final transactional commit. Each run reports its progress as a stream
// of events.
package ingest

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
	"github.com/sambooru/sambooru-server/internal/hash"
	"github.com/sambooru/sambooru-server/internal/media"
	"github.com/sambooru/sambooru-server/internal/store"
	"github.com/sambooru/sambooru-server/internal/tagger"
)

// eventBuffer is sized so a full run, terminal event included, never
// blocks on an absent consumer.
const eventBuffer = 16

// Upload describes one file handed to the pipeline. TempPath is owned by
// the pipeline from this point on and removed when the run ends. Category
// applies to tags created by this upload; existing tags keep theirs.
type Upload struct {
	TempPath string
	MimeType string
	UserTags string
	Category string
	Uploader *domain.User
}

// Pipeline coordinates the ingestion stages.
type Pipeline struct {
	store     *store.Store
	catalog   *catalog.Catalog
	processor *media.Processor
	tagger    *tagger.Tagger
	logger    *slog.Logger

	// Bounds concurrent media processing; decoding and ffmpeg dominate
	// the pipeline's resource use.
	sem chan struct{}
}

// New creates a Pipeline. maxConcurrent bounds simultaneous runs in the
// processing stage.
func New(
	s *store.Store,
	cat *catalog.Catalog,
	proc *media.Processor,
	tag *tagger.Tagger,
	maxConcurrent int,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		store:     s,
		catalog:   cat,
		processor: proc,
		tagger:    tag,
		logger:    logger,
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Ingest starts an ingestion run and returns its event stream. The
// channel is closed after the terminal event. The run is detached from
// the caller's context: once a file is accepted, a departing client does
// not abort the work.
func (p *Pipeline) Ingest(upload Upload) <-chan Event {
	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)
		p.run(context.Background(), upload, events)
	}()
	return events
}

// run executes the stages in order, emitting an event as each begins and
// a terminal event at the end.
func (p *Pipeline) run(ctx context.Context, upload Upload, events chan<- Event) {
	defer os.Remove(upload.TempPath) //nolint:errcheck // Transient file

	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID))

	emit := func(e Event) {
		e.UploadID = runID
		select {
		case events <- e:
		default:
			// Buffer full means the consumer stopped reading long ago;
			// dropping an intermediate update is harmless.
		}
	}

	fail := func(err error) {
		logger.Error("ingestion failed", slog.Any("error", err))
		emit(terminalEvent(err, ""))
	}

	emit(Event{Stage: StageReceived})

	// Stage: hashing.
	emit(Event{Stage: StageHashing})
	digest, err := hash.DigestFile(upload.TempPath)
	if err != nil {
		fail(apperrors.Wrap(err, apperrors.CodeProcessing, "failed to hash upload"))
		return
	}

	// Stage: dedup check. An early exit for clear duplicates; the commit
	// transaction re-checks to close the race window.
	emit(Event{Stage: StageDedupCheck})
	existingID, err := p.store.LookupHash(ctx, digest)
	if err == nil {
		logger.Info("rejected duplicate upload",
			slog.String("digest", digest),
			slog.String("existing_post", existingID),
		)
		emit(Event{
			Stage:  StageRejected,
			Code:   string(apperrors.CodeDuplicateContent),
			Error:  "this file has already been uploaded",
			PostID: existingID,
		})
		return
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		fail(err)
		return
	}

	// Stage: processing, bounded by the semaphore.
	emit(Event{Stage: StageProcessing})
	p.sem <- struct{}{}
	result, err := p.processor.Process(ctx, upload.TempPath, upload.MimeType, digest)
	<-p.sem
	if err != nil {
		fail(err)
		return
	}
	defer p.processor.CleanupFrame(result)

	// Stage: auto-tagging. Best-effort; failures yield no tags.
	emit(Event{Stage: StageAutoTagging})
	autoNames := p.tagger.TagImage(ctx, result.FramePath)

	// Stage: tag resolution. User tags come first, then auto tags,
	// deduplicated by normalized name.
	emit(Event{Stage: StageTagResolution})
	names := mergeTagNames(catalog.SplitTokens(upload.UserTags), autoNames)
	tagIDs, err := p.catalog.ResolveNames(ctx, names, upload.Category)
	if err != nil {
		p.removeArtifacts(digest, result.FileExt)
		fail(err)
		return
	}

	// Stage: persisting. The commit transaction holds the dedup
	// invariant; a racing upload of the same content loses here.
	emit(Event{Stage: StagePersisting})
	postID, err := p.store.NextID("posts")
	if err != nil {
		p.removeArtifacts(digest, result.FileExt)
		fail(err)
		return
	}

	post := &domain.Post{
		ID:          postID,
		ContentHash: digest,
		MediaType:   result.MediaType,
		FileExt:     result.FileExt,
		BlurHash:    result.BlurHash,
		TagIDs:      tagIDs,
		UploaderID:  upload.Uploader.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := p.store.CreatePostWithHash(ctx, post); err != nil {
		if apperrors.Is(err, apperrors.ErrDuplicateContent) {
			// The racing winner wrote identical digest-named artifacts,
			// so ours must stay on disk for its post.
			emit(terminalEvent(err, ""))
			return
		}
		p.removeArtifacts(digest, result.FileExt)
		fail(err)
		return
	}

	logger.Info("ingested post",
		slog.String("post_id", postID),
		slog.String("digest", digest),
		slog.String("media_type", string(result.MediaType)),
		slog.Int("tags", len(tagIDs)),
		slog.String("uploader", upload.Uploader.ID),
	)

	emit(Event{Stage: StageCommitted, PostID: postID})
}

// removeArtifacts deletes stored files for a run that will not commit.
// Safe only while no post references the digest.
func (p *Pipeline) removeArtifacts(digest, ext string) {
	if err := p.processor.RemoveArtifacts(digest, ext); err != nil {
		p.logger.Warn("failed to remove artifacts",
			slog.String("digest", digest),
			slog.Any("error", err),
		)
	}
}

// terminalEvent maps an error to a rejected or failed event. Domain
// errors the uploader caused (duplicates, unsupported media, validation)
// are rejections; everything else is a failure.
func terminalEvent(err error, postID string) Event {
	var domainErr *apperrors.Error
	if apperrors.As(err, &domainErr) {
		switch domainErr.Code {
		case apperrors.CodeDuplicateContent, apperrors.CodeUnsupportedMedia, apperrors.CodeValidation:
			return Event{
				Stage:  StageRejected,
				Code:   string(domainErr.Code),
				Error:  domainErr.Message,
				PostID: postID,
			}
		}
		return Event{
			Stage: StageFailed,
			Code:  string(domainErr.Code),
			Error: domainErr.Message,
		}
	}
	return Event{
		Stage: StageFailed,
		Code:  string(apperrors.CodeInternal),
		Error: "internal error",
	}
}

// mergeTagNames concatenates user and auto tag names, dropping
// duplicates while preserving order. Inputs are already normalized.
func mergeTagNames(user, auto []string) []string {
	return lo.Uniq(append(append(make([]string, 0, len(user)+len(auto)), user...), auto...))
}
