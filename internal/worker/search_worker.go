package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"combos/internal/amqp"
	applog "combos/internal/log"
	"combos/internal/services"
)

// Searcher runs one validated combination search.
type Searcher interface {
	Search(ctx context.Context, req services.SearchRequest) (services.SearchResponse, error)
}

// ResultPublisher delivers a search outcome to whoever queued the request.
type ResultPublisher interface {
	PublishSearchResult(ctx context.Context, msg *amqp.SearchResultMessage) error
}

// SearchWorker answers queued search requests.
type SearchWorker struct {
	searcher  Searcher
	publisher ResultPublisher
	logger    *applog.Logger
}

func NewSearchWorker(searcher Searcher, publisher ResultPublisher, logger *applog.Logger) *SearchWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SearchWorker{
		searcher:  searcher,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleSearchRequest runs the search described by msg and publishes its
// result. Bad input and failed searches are answered with an error result;
// only a shutdown or a failed publish returns an error so the request is
// redelivered.
func (w *SearchWorker) HandleSearchRequest(ctx context.Context, msg *amqp.SearchRequestMessage) error {
	start := time.Now()
	log := w.logger.With(applog.FieldSearchID, msg.ID)

	resp, err := w.searcher.Search(ctx, services.SearchRequest{
		Text:     msg.Text,
		Target:   msg.Target,
		MaxCount: msg.MaxCount,
	})

	var result *amqp.SearchResultMessage
	switch {
	case err == nil:
		result = amqp.NewSearchResultMessage(msg.ID, resp.Result)
		log.InfoContext(ctx, "Search request answered",
			applog.NewFields().
				WithSearch(len(resp.Entries), resp.TargetCents, resp.MaxCount).
				WithResult(len(resp.Result.Combinations), resp.Result.Truncated, time.Since(start).Milliseconds()).
				ToSlice()...)
	case ctx.Err() != nil:
		return ctx.Err()
	case services.IsValidation(err):
		log.WarnContext(ctx, "Search request rejected", applog.FieldError, err)
		result = amqp.NewSearchErrorMessage(msg.ID, amqp.StateInvalid, err)
	case errors.Is(err, services.ErrSearchTimeout):
		log.WarnContext(ctx, "Search request timed out", applog.FieldError, err)
		result = amqp.NewSearchErrorMessage(msg.ID, amqp.StateFailed, err)
	default:
		log.ErrorContext(ctx, "Search request failed", applog.FieldError, err)
		result = amqp.NewSearchErrorMessage(msg.ID, amqp.StateFailed, err)
	}

	if err := w.publisher.PublishSearchResult(ctx, result); err != nil {
		return fmt.Errorf("publish search result: %w", err)
	}
	return nil
}
